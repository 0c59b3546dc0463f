// Package verify checks buddy heap invariants.
//
// # Overview
//
// The checks operate on a heap.Snapshot plus the caller's record of live
// allocations, so they never touch the heap itself. They are used by tests
// and by buddyctl after a simulated workload.
//
// Validation categories:
//   - Alignment: every class-c free block address is a multiple of 2^c
//   - Disjoint: free blocks and live allocations never overlap, and no block
//     is listed twice
//   - Conservation: total == free bytes + allocated bytes
//   - Accounting: user and allocated counters match the live allocations
//
// # Quick Start
//
//	snap := h.Snapshot()
//	if err := verify.AllInvariants(snap, live); err != nil {
//	    fmt.Printf("heap corrupt: %v\n", err)
//	}
//
// All checks return *ValidationError on failure:
//
//	var verr *verify.ValidationError
//	if errors.As(err, &verr) {
//	    fmt.Printf("Type: %s at %#x\n", verr.Type, verr.Addr)
//	}
package verify
