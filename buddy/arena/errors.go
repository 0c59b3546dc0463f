package arena

import "errors"

var (
	// ErrOutOfRange indicates an address span outside the backing memory.
	ErrOutOfRange = errors.New("arena: address out of range")

	// ErrOverlap indicates a region overlapping one already in the space.
	ErrOverlap = errors.New("arena: regions overlap")

	// ErrBadSize indicates a zero-length region or one whose end overflows the address space.
	ErrBadSize = errors.New("arena: bad region size")
)
