package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/buddykit/buddy/arena"
)

func Test_Snapshot_EmptyHeap(t *testing.T) {
	h := Empty(arena.NewSparse())
	snap := h.Snapshot()

	require.Zero(t, snap.FreeBytes())
	require.Zero(t, snap.Largest())
	require.Equal(t, [NumClasses]int{}, snap.Counts())
	require.Equal(t, Stats{}, snap.Stats)
}

func Test_Snapshot_Summaries(t *testing.T) {
	h := New(arena.NewSparse())
	h.AddToHeap(8, 1024)

	snap := h.Snapshot()
	require.Equal(t, uint64(1016), snap.FreeBytes())
	require.Equal(t, uint64(512), snap.Largest())

	counts := snap.Counts()
	for c := range NumClasses {
		want := 0
		if c >= 3 && c <= 9 {
			want = 1
		}
		require.Equal(t, want, counts[c], "class %d", c)
	}

	layout := Layout{Size: 500, Align: 8}
	addr, err := h.Alloc(layout)
	require.NoError(t, err)
	require.Equal(t, Addr(512), addr)

	snap = h.Snapshot()
	require.Equal(t, uint64(504), snap.FreeBytes())
	require.Equal(t, uint64(256), snap.Largest())
	require.Equal(t, Stats{User: 500, Allocated: 512, Total: 1016}, snap.Stats)
}

func Test_Snapshot_DoesNotMutate(t *testing.T) {
	h, _ := newRegionHeap(t, 0, 4096)
	_, err := h.Alloc(Layout{Size: 100, Align: 8})
	require.NoError(t, err)

	first := h.Snapshot()
	second := h.Snapshot()
	require.Equal(t, first, second)
}
