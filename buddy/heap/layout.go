package heap

import (
	"fmt"

	"github.com/joshuapare/buddykit/internal/format"
)

// Layout describes an allocation request: Size bytes aligned to Align.
type Layout struct {
	Size  uint64
	Align uint64
}

// NewLayout returns a Layout after checking that align is a power of two.
func NewLayout(size, align uint64) (Layout, error) {
	if !format.IsPowerOfTwo(align) {
		return Layout{}, fmt.Errorf("%w: got %d", ErrInvalidLayout, align)
	}
	return Layout{Size: size, Align: align}, nil
}

// valid accepts the zero alignment so the zero Layout means "one word".
func (l Layout) valid() bool {
	return l.Align == 0 || format.IsPowerOfTwo(l.Align)
}

// BlockSize returns the size of the block that serves l:
// max(nextPow2(Size), max(Align, WordSize)). ok is false when that size does
// not fit in 64 bits.
func (l Layout) BlockSize() (size uint64, ok bool) {
	size, ok = format.NextPowerOfTwo(l.Size)
	if !ok {
		return 0, false
	}
	return max(size, l.Align, format.WordSize), true
}

// class returns the block size and its size class for l.
func (l Layout) class() (size uint64, class int, ok bool) {
	size, ok = l.BlockSize()
	if !ok {
		return 0, 0, false
	}
	return size, format.Log2(size), true
}

func (l Layout) String() string {
	return fmt.Sprintf("Layout{size: %d, align: %d}", l.Size, l.Align)
}
