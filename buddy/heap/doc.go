// Package heap implements a power-of-two buddy-system allocator.
//
// # Overview
//
// A Heap manages address ranges handed to it by a host and serves
// power-of-two sized, naturally aligned blocks out of them. It keeps no
// bookkeeping outside the memory it manages: free blocks are threaded onto
// one intrusive free list per size class (see package freelist), and
// allocation sizes are not recorded, so callers pass the same Layout to
// Dealloc that they passed to Alloc.
//
// # Size Classes
//
// The heap maintains 32 free lists. Class c holds blocks of exactly 2^c
// bytes whose address is a multiple of 2^c:
//
//	Class  3:  8 B (one link word, the smallest block)
//	Class 10:  1 KB
//	Class 20:  1 MB
//	Class 31:  2 GB (largest block)
//
// # Allocation
//
// Alloc rounds the request up to max(nextPow2(size), align, WordSize), takes
// the first non-empty class at or above the target and splits the block in
// halves down to the target class. Dealloc pushes the block back and merges
// it with its buddy (addr XOR size) for as long as the buddy is free. Both
// are O(log N) in the number of classes, plus the buddy search.
//
// # Usage Example
//
//	r, _ := arena.New(0x10000, 64<<10)
//	h := heap.New(r)
//	h.Init(r.Base(), r.Size())
//
//	layout := heap.Layout{Size: 100, Align: 8}
//	addr, err := h.Alloc(layout) // 128-byte block
//	if err != nil {
//	    return err
//	}
//	defer h.Dealloc(addr, layout)
//
// # Thread Safety
//
// Heap is not safe for concurrent use and takes no locks. LockedHeap and
// LockedHeapWithRescue wrap a Heap behind a mutex and are the shape a host
// installs as its process-wide allocator.
//
// # Contract Violations
//
// Registering an inverted range, deallocating with a different Layout than
// the allocation used, freeing twice, or registering memory the host does
// not own are not detected. The first panics; the rest corrupt the free
// lists. There is no safe recovery from a corrupted heap.
package heap
