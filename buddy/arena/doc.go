// Package arena provides the memory the buddy heap manages.
//
// The heap never allocates for itself: a host registers raw [start, end)
// address ranges and the heap carves blocks out of them, storing free-list
// links inside the free blocks. This package is that host-side memory. A
// Region maps an address range onto a byte buffer, either on the Go heap
// (New) or in an anonymous private mapping (Map). A Space stitches several
// non-overlapping regions behind one address space, which is what a rescue
// hook uses to hand the heap a fallback region after the first one runs dry.
//
// # Usage Example
//
//	r, err := arena.Map(0x10000, 1<<20)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	h := heap.New(r)
//	h.AddToHeap(r.Base(), r.End())
//
//	addr, err := h.Alloc(heap.Layout{Size: 256, Align: 16})
//	if err != nil {
//	    return err
//	}
//	b, _ := r.Bytes(addr, 256)
//	copy(b, payload)
//
// # Contract
//
// LoadWord and StoreWord panic on addresses outside the backing memory. The
// heap only touches addresses it was given, so a miss means the host
// registered a range it does not own.
package arena
