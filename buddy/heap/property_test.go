package heap_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/buddykit/buddy/arena"
	"github.com/joshuapare/buddykit/buddy/heap"
	"github.com/joshuapare/buddykit/buddy/verify"
)

// Test_Fuzz_RandomAllocFree_GuardInvariants performs seeded random alloc/free
// and validates every heap invariant after each step.
func Test_Fuzz_RandomAllocFree_GuardInvariants(t *testing.T) {
	for _, seed := range []int64{1, 42, 1337} {
		r, err := arena.New(0x40000, 0x40000)
		require.NoError(t, err)
		h := heap.New(r)
		// An unaligned, non-power-of-two range exercises the tiling path.
		h.AddToHeap(r.Base()+24, r.End()-40)
		initial := h.Snapshot()

		rng := rand.New(rand.NewSource(seed))
		var live []verify.Allocation

		for i := range 2000 {
			if len(live) == 0 || rng.Intn(3) != 0 {
				layout := heap.Layout{
					Size:  uint64(rng.Intn(2048)),
					Align: uint64(1) << rng.Intn(10),
				}
				addr, err := h.Alloc(layout)
				if err != nil {
					require.ErrorIs(t, err, heap.ErrOutOfMemory, "step %d", i)
				} else {
					size, _ := layout.BlockSize()
					require.Zero(t, uint64(addr)%size, "step %d: %v at %#x", i, layout, addr)
					require.Zero(t, uint64(addr)%max(layout.Align, 1), "step %d", i)
					live = append(live, verify.Allocation{Addr: addr, Layout: layout})
				}
			} else {
				j := rng.Intn(len(live))
				h.Dealloc(live[j].Addr, live[j].Layout)
				live[j] = live[len(live)-1]
				live = live[:len(live)-1]
			}

			require.NoError(t, verify.AllInvariants(h.Snapshot(), live), "seed %d step %d", seed, i)
		}

		// Freeing everything coalesces back to the registered tiling.
		for _, al := range live {
			h.Dealloc(al.Addr, al.Layout)
		}
		final := h.Snapshot()
		for c := range heap.NumClasses {
			require.ElementsMatch(t, initial.Free[c], final.Free[c], "seed %d class %d", seed, c)
		}
		require.Equal(t, initial.Stats, final.Stats)
	}
}

// Test_ContentsSurviveNeighbourFrees writes a pattern into each block and
// checks no free-list link lands inside a live block.
func Test_ContentsSurviveNeighbourFrees(t *testing.T) {
	r, err := arena.New(0, 1<<14)
	require.NoError(t, err)
	h := heap.New(r)
	h.Init(0, 1<<14)

	layout := heap.Layout{Size: 48, Align: 16}
	var addrs []heap.Addr
	for {
		addr, err := h.Alloc(layout)
		if err != nil {
			break
		}
		b, err := r.Bytes(addr, layout.Size)
		require.NoError(t, err)
		for i := range b {
			b[i] = byte(addr >> 6)
		}
		addrs = append(addrs, addr)
	}
	require.Len(t, addrs, (1<<14)/64)

	// Free every other block, then check the survivors.
	for i := 0; i < len(addrs); i += 2 {
		h.Dealloc(addrs[i], layout)
	}
	for i := 1; i < len(addrs); i += 2 {
		b, err := r.Bytes(addrs[i], layout.Size)
		require.NoError(t, err)
		for _, v := range b {
			require.Equal(t, byte(addrs[i]>>6), v, "block %#x corrupted", addrs[i])
		}
	}
}
