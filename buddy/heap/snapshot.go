package heap

import "slices"

// Snapshot is a point-in-time copy of the free lists and counters.
// Free[c] lists class-c blocks in free-list order (most recently pushed first).
type Snapshot struct {
	Free  [NumClasses][]Addr
	Stats Stats
}

// Snapshot copies the free lists. It walks every list and does not modify
// the heap.
func (h *Heap) Snapshot() Snapshot {
	var s Snapshot
	for c := range h.freeList {
		s.Free[c] = slices.Collect(h.freeList[c].All(h.mem))
	}
	s.Stats = h.Stats()
	return s
}

// FreeBlocks returns the number of free blocks in class.
func (h *Heap) FreeBlocks(class int) int {
	return h.freeList[class].Len(h.mem)
}

// Counts returns the number of free blocks per class.
func (s Snapshot) Counts() [NumClasses]int {
	var n [NumClasses]int
	for c, blocks := range s.Free {
		n[c] = len(blocks)
	}
	return n
}

// FreeBytes returns the total size of all free blocks.
func (s Snapshot) FreeBytes() uint64 {
	var n uint64
	for c, blocks := range s.Free {
		n += uint64(len(blocks)) << c
	}
	return n
}

// Largest returns the size of the largest free block, or 0 if there is none.
func (s Snapshot) Largest() uint64 {
	for c := MaxClass; c >= 0; c-- {
		if len(s.Free[c]) > 0 {
			return 1 << c
		}
	}
	return 0
}
