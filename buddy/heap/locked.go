package heap

import (
	"errors"
	"sync"
)

// Null is the failure sentinel returned by GlobalAllocator.Alloc. A host that
// allocates through that interface must not register address 0.
const Null Addr = 0

// GlobalAllocator is the process-wide allocator contract: bytes in, an
// address out, Null when memory is exhausted. A host constructs one
// implementation at startup, registers its memory and keeps it for the life
// of the process.
type GlobalAllocator interface {
	Alloc(layout Layout) Addr
	Dealloc(addr Addr, layout Layout)
}

var (
	_ GlobalAllocator = (*LockedHeap)(nil)
	_ GlobalAllocator = (*LockedHeapWithRescue)(nil)
)

// LockedHeap is a Heap behind a mutex. Every call holds the lock for the
// duration of one heap operation.
//
// The zero LockedHeap is ready to be a package-level allocator: until
// SetMemory and Init run, Alloc returns Null.
//
//	var global heap.LockedHeap
//
//	func boot(r *arena.Region) {
//	    global.SetMemory(r)
//	    global.Init(r.Base(), r.Size())
//	}
type LockedHeap struct {
	mu   sync.Mutex
	heap Heap
}

// NewLocked returns an empty locked heap whose free-list links live in mem.
func NewLocked(mem Memory) *LockedHeap {
	return &LockedHeap{heap: newHeap(mem)}
}

// Lock runs fn with exclusive access to the underlying heap.
// fn must not call back into l.
func (l *LockedHeap) Lock(fn func(h *Heap)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.heap)
}

// SetMemory sets the link store; see Heap.SetMemory.
func (l *LockedHeap) SetMemory(mem Memory) {
	l.Lock(func(h *Heap) { h.SetMemory(mem) })
}

// AddToHeap registers [start, end); see Heap.AddToHeap.
func (l *LockedHeap) AddToHeap(start, end Addr) {
	l.Lock(func(h *Heap) { h.AddToHeap(start, end) })
}

// Init registers [start, start+size); see Heap.Init.
func (l *LockedHeap) Init(start Addr, size uint64) {
	l.Lock(func(h *Heap) { h.Init(start, size) })
}

// TryAlloc allocates a block for layout and reports failure as an error.
func (l *LockedHeap) TryAlloc(layout Layout) (Addr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heap.Alloc(layout)
}

// Alloc allocates a block for layout, returning Null on failure.
func (l *LockedHeap) Alloc(layout Layout) Addr {
	addr, err := l.TryAlloc(layout)
	if err != nil {
		return Null
	}
	return addr
}

// Dealloc frees a block; see Heap.Dealloc.
func (l *LockedHeap) Dealloc(addr Addr, layout Layout) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.heap.Dealloc(addr, layout)
}

// Stats returns the heap counters.
func (l *LockedHeap) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heap.Stats()
}

// Snapshot copies the heap's free lists and counters.
func (l *LockedHeap) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heap.Snapshot()
}

// LockedHeapWithRescue is a LockedHeap that gets one chance to recover from
// an out-of-memory allocation.
//
// When an allocation fails, rescue runs with the lock still held and
// exclusive access to the heap, e.g. to register a fallback region, and the
// allocation is retried exactly once. rescue must not call back into the
// wrapper: the lock is not reentrant and the call would deadlock.
type LockedHeapWithRescue struct {
	LockedHeap
	rescue func(h *Heap)
}

// NewLockedWithRescue returns an empty locked heap with an out-of-memory hook.
// A nil rescue behaves like LockedHeap.
func NewLockedWithRescue(mem Memory, rescue func(h *Heap)) *LockedHeapWithRescue {
	return &LockedHeapWithRescue{
		LockedHeap: LockedHeap{heap: newHeap(mem)},
		rescue:     rescue,
	}
}

// TryAlloc allocates a block for layout, running the rescue hook once on
// out-of-memory before giving up.
func (l *LockedHeapWithRescue) TryAlloc(layout Layout) (Addr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	addr, err := l.heap.Alloc(layout)
	if !errors.Is(err, ErrOutOfMemory) || l.rescue == nil {
		return addr, err
	}
	l.rescue(&l.heap)
	return l.heap.Alloc(layout)
}

// Alloc allocates a block for layout, returning Null on failure after one
// rescue attempt.
func (l *LockedHeapWithRescue) Alloc(layout Layout) Addr {
	addr, err := l.TryAlloc(layout)
	if err != nil {
		return Null
	}
	return addr
}
