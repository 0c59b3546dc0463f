package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/buddykit/buddy/arena"
)

// newRegionHeap returns a heap over a fresh Go-heap region [base, base+size)
// with the whole region registered.
func newRegionHeap(t testing.TB, base Addr, size uint64) (*Heap, *arena.Region) {
	t.Helper()
	r, err := arena.New(base, size)
	require.NoError(t, err)
	h := New(r)
	h.Init(base, size)
	return h, r
}

// requireFree asserts the exact free-list contents per class; classes not
// named must be empty.
func requireFree(t testing.TB, h *Heap, want map[int][]Addr) {
	t.Helper()
	snap := h.Snapshot()
	for c := range NumClasses {
		if len(want[c]) == 0 {
			require.Empty(t, snap.Free[c], "class %d should be empty", c)
			continue
		}
		require.Equal(t, want[c], snap.Free[c], "class %d", c)
	}
}
