package heap

import (
	"fmt"

	"github.com/joshuapare/buddykit/buddy/freelist"
	"github.com/joshuapare/buddykit/internal/buf"
	"github.com/joshuapare/buddykit/internal/format"
)

const (
	// NumClasses is the number of size classes; class c holds 2^c-byte blocks.
	NumClasses = 32

	// MaxClass is the largest size class.
	MaxClass = NumClasses - 1

	// MaxBlockSize is the size of a MaxClass block (2 GB).
	MaxBlockSize uint64 = 1 << MaxClass
)

// Addr is a block address; see freelist.Addr.
type Addr = freelist.Addr

// Memory is the word store behind the managed ranges; see freelist.Memory.
type Memory = freelist.Memory

// Heap is a buddy-system allocator with one free list per size class.
//
// A Heap is created empty and grows only through AddToHeap/Init. It is not
// safe for concurrent use.
//
// The zero Heap is an empty heap without Memory: Alloc reports
// ErrOutOfMemory, while AddToHeap and Dealloc panic. Use New to give it
// somewhere to keep its links, or SetMemory before the first range.
type Heap struct {
	mem Memory

	// freeList[c] holds free blocks of 2^c bytes, each 2^c-aligned.
	freeList [NumClasses]freelist.List

	// Statistics
	user      uint64 // bytes requested by callers
	allocated uint64 // bytes handed out after rounding
	total     uint64 // bytes ever registered
}

// New returns an empty heap whose free-list links live in mem.
// No memory is managed until AddToHeap or Init registers a range.
func New(mem Memory) *Heap {
	h := newHeap(mem)
	return &h
}

// Empty is an alias for New.
func Empty(mem Memory) *Heap {
	return New(mem)
}

func newHeap(mem Memory) Heap {
	return Heap{mem: mem}
}

// SetMemory sets the store that holds the free-list links. It panics once a
// range has been registered, since the existing links live in the old store.
func (h *Heap) SetMemory(mem Memory) {
	if h.total != 0 {
		panic("buddy: SetMemory after ranges were registered")
	}
	h.mem = mem
}

func (h *Heap) mustHaveMemory(op string) {
	if h.mem == nil {
		panic("buddy: " + op + " on a heap with no Memory; create it with heap.New")
	}
}

// AddToHeap registers [start, end) as free memory. start is rounded up and
// end rounded down to the word size; an inverted range after rounding panics.
//
// The range is tiled left to right with the largest block that is both
// aligned at the current address and fits in what remains, so it becomes the
// fewest possible disjoint, naturally aligned power-of-two blocks. Blocks are
// capped at MaxBlockSize.
//
// The caller attests that the range is writable, exclusively owned memory
// reachable through the heap's Memory for as long as the heap lives.
func (h *Heap) AddToHeap(start, end Addr) {
	h.mustHaveMemory("AddToHeap")
	alignedStart := Addr(format.AlignUp(uint64(start)))
	if alignedStart < start {
		panic(fmt.Sprintf("buddy: range start %#x overflows when aligned", start))
	}
	start = alignedStart
	end = Addr(format.AlignDown(uint64(end)))
	if start > end {
		panic(fmt.Sprintf("buddy: inverted range [%#x, %#x)", start, end))
	}

	var total uint64
	for cur := start; end-cur >= format.WordSize; {
		size := format.LowBit(uint64(cur))
		if size == 0 || size > MaxBlockSize {
			size = MaxBlockSize
		}
		size = min(size, format.PrevPowerOfTwo(uint64(end-cur)))

		h.freeList[format.Log2(size)].Push(h.mem, cur)
		total += size
		cur += Addr(size)
	}
	h.total += total
}

// Init registers [start, start+size). It panics if the range overflows the
// address space.
func (h *Heap) Init(start Addr, size uint64) {
	end, ok := buf.AddOverflowSafe(uint64(start), size)
	if !ok {
		panic(fmt.Sprintf("buddy: range %#x + %d overflows", start, size))
	}
	h.AddToHeap(start, Addr(end))
}

// Alloc returns the address of a free block satisfying layout. The block is
// BlockSize bytes and aligned to its own size, hence to layout.Align.
//
// It returns ErrOutOfMemory when no class at or above the target has a free
// block, in which case nothing changes.
func (h *Heap) Alloc(layout Layout) (Addr, error) {
	if !layout.valid() {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidLayout, layout.Align)
	}
	size, class, ok := layout.class()
	if !ok {
		return 0, ErrOutOfMemory
	}

	for i := class; i < NumClasses; i++ {
		if h.freeList[i].IsEmpty() {
			continue
		}

		// Split down to the target class, upper half first.
		for j := i; j > class; j-- {
			block, ok := h.freeList[j].Pop(h.mem)
			if !ok {
				panic(fmt.Sprintf("buddy: class %d emptied while splitting for class %d", j, class))
			}
			h.freeList[j-1].Push(h.mem, block+Addr(1)<<(j-1))
			h.freeList[j-1].Push(h.mem, block)
		}

		addr, ok := h.freeList[class].Pop(h.mem)
		if !ok {
			panic(fmt.Sprintf("buddy: class %d empty after split", class))
		}
		h.user += layout.Size
		h.allocated += size
		return addr, nil
	}
	return 0, ErrOutOfMemory
}

// Dealloc returns the block at addr to the heap and merges it with its free
// buddies. layout must be the Layout the block was allocated with.
//
// Freeing an address that is not currently allocated corrupts the heap; it
// is not detected.
func (h *Heap) Dealloc(addr Addr, layout Layout) {
	h.mustHaveMemory("Dealloc")
	size, class, ok := layout.class()
	if !ok || !layout.valid() || class >= NumClasses {
		panic(fmt.Sprintf("buddy: dealloc of %#x with %v, which no allocation could have used", addr, layout))
	}

	h.freeList[class].Push(h.mem, addr)

	// Merging stops at MaxClass: there is no larger class to merge into.
	cur := addr
	for c := class; c < MaxClass; c++ {
		buddy := cur ^ Addr(1)<<c
		if !h.removeFree(c, buddy) {
			break
		}
		// cur sits at the head of class c: it was pushed there last.
		h.freeList[c].Pop(h.mem)
		cur = min(cur, buddy)
		h.freeList[c+1].Push(h.mem, cur)
	}

	h.user -= layout.Size
	h.allocated -= size
}

// removeFree unlinks addr from free list class, reporting whether it was there.
func (h *Heap) removeFree(class int, addr Addr) bool {
	cur := h.freeList[class].Cursor(h.mem)
	for cur.Next() {
		if cur.Value() == addr {
			cur.Remove()
			return true
		}
	}
	return false
}

// StatsAllocUser returns the number of bytes callers have requested and not
// yet freed.
func (h *Heap) StatsAllocUser() uint64 {
	return h.user
}

// StatsAllocActual returns the number of bytes currently handed out,
// counting each allocation at its rounded block size.
func (h *Heap) StatsAllocActual() uint64 {
	return h.allocated
}

// StatsTotalBytes returns the number of bytes ever registered.
func (h *Heap) StatsTotalBytes() uint64 {
	return h.total
}

// Stats is a copy of the heap counters.
type Stats struct {
	User      uint64 `json:"user"`
	Allocated uint64 `json:"allocated"`
	Total     uint64 `json:"total"`
}

// Stats returns the current counters.
func (h *Heap) Stats() Stats {
	return Stats{User: h.user, Allocated: h.allocated, Total: h.total}
}

func (h *Heap) String() string {
	return fmt.Sprintf("Heap{user: %d, allocated: %d, total: %d}", h.user, h.allocated, h.total)
}
