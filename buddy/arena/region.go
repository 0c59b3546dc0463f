package arena

import (
	"fmt"

	"github.com/joshuapare/buddykit/buddy/freelist"
	"github.com/joshuapare/buddykit/internal/buf"
	"github.com/joshuapare/buddykit/internal/format"
)

// Addr is a block address; see freelist.Addr.
type Addr = freelist.Addr

// Region is a contiguous address range [Base, End) backed by a byte buffer.
type Region struct {
	base    Addr
	data    []byte
	release func() error
}

// New returns a region of size bytes at base, backed by the Go heap.
func New(base Addr, size uint64) (*Region, error) {
	if err := checkBounds(base, size); err != nil {
		return nil, err
	}
	return &Region{
		base:    base,
		data:    make([]byte, size),
		release: func() error { return nil },
	}, nil
}

func checkBounds(base Addr, size uint64) error {
	if size == 0 {
		return fmt.Errorf("%w: zero length at %#x", ErrBadSize, base)
	}
	if _, ok := buf.AddOverflowSafe(uint64(base), size); !ok {
		return fmt.Errorf("%w: %#x + %d overflows", ErrBadSize, base, size)
	}
	if size > uint64(^uint(0)>>1) {
		return fmt.Errorf("%w: %d bytes exceeds addressable memory", ErrBadSize, size)
	}
	return nil
}

// Base returns the first address of the region.
func (r *Region) Base() Addr { return r.base }

// End returns the address one past the last byte of the region.
func (r *Region) End() Addr { return r.base + Addr(len(r.data)) }

// Size returns the region length in bytes.
func (r *Region) Size() uint64 { return uint64(len(r.data)) }

// Contains reports whether addr lies inside the region.
func (r *Region) Contains(addr Addr) bool {
	return addr >= r.base && addr < r.End()
}

// Bytes returns the n bytes starting at addr. The slice aliases the region.
func (r *Region) Bytes(addr Addr, n uint64) ([]byte, error) {
	off, err := buf.CheckSpan(uint64(r.base), r.Size(), uint64(addr), n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutOfRange, err)
	}
	return r.data[off : off+n], nil
}

// LoadWord reads the link word at addr.
func (r *Region) LoadWord(addr Addr) uint64 {
	return format.ReadWord(r.data, r.wordOffset(addr))
}

// StoreWord writes the link word at addr.
func (r *Region) StoreWord(addr Addr, v uint64) {
	format.PutWord(r.data, r.wordOffset(addr), v)
}

func (r *Region) wordOffset(addr Addr) int {
	off, err := buf.CheckSpan(uint64(r.base), r.Size(), uint64(addr), format.WordSize)
	if err != nil {
		panic(fmt.Sprintf("buddy: word access outside region: %v", err))
	}
	return int(off)
}

// Close releases the backing memory. The region must not be used afterwards.
// Closing twice is a no-op.
func (r *Region) Close() error {
	if r.release == nil {
		return nil
	}
	err := r.release()
	r.release = nil
	r.data = nil
	return err
}

func (r *Region) String() string {
	return fmt.Sprintf("[%#x, %#x)", r.base, r.End())
}
