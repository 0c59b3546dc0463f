package heap

import "errors"

var (
	// ErrOutOfMemory indicates no free block at or above the requested size class.
	// A failed Alloc leaves the heap unchanged.
	ErrOutOfMemory = errors.New("buddy: out of memory")

	// ErrInvalidLayout indicates an alignment that is zero or not a power of two.
	ErrInvalidLayout = errors.New("buddy: alignment must be a power of two")
)
