package heap

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/buddykit/buddy/arena"
)

func newSpace(t *testing.T, regions ...*arena.Region) *arena.Space {
	t.Helper()
	s, err := arena.NewSpace(regions...)
	require.NoError(t, err)
	return s
}

func newRegion(t *testing.T, base Addr, size uint64) *arena.Region {
	t.Helper()
	r, err := arena.New(base, size)
	require.NoError(t, err)
	return r
}

func Test_LockedHeap_AllocDealloc(t *testing.T) {
	r := newRegion(t, 0x1000, 0x1000)
	l := NewLocked(r)
	l.Init(r.Base(), r.Size())

	layout := Layout{Size: 100, Align: 8}
	addr := l.Alloc(layout)
	require.NotEqual(t, Null, addr)
	require.Equal(t, Stats{User: 100, Allocated: 128, Total: 0x1000}, l.Stats())

	l.Dealloc(addr, layout)
	require.Equal(t, Stats{Total: 0x1000}, l.Stats())
	require.Equal(t, []Addr{0x1000}, l.Snapshot().Free[12])
}

func Test_LockedHeap_OutOfMemoryIsNull(t *testing.T) {
	r := newRegion(t, 0x1000, 64)
	l := NewLocked(r)
	l.AddToHeap(r.Base(), r.End())

	require.Equal(t, Null, l.Alloc(Layout{Size: 128, Align: 8}))

	_, err := l.TryAlloc(Layout{Size: 128, Align: 8})
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func Test_LockedHeap_LockGivesHeapAccess(t *testing.T) {
	r := newRegion(t, 0x1000, 256)
	l := NewLocked(r)

	l.Lock(func(h *Heap) {
		h.AddToHeap(r.Base(), r.End())
		require.Equal(t, uint64(256), h.StatsTotalBytes())
	})
	require.Equal(t, uint64(256), l.Stats().Total)
}

func Test_LockedHeap_IsGlobalAllocator(t *testing.T) {
	r := newRegion(t, 0x1000, 0x1000)
	l := NewLocked(r)
	l.Init(r.Base(), r.Size())

	var g GlobalAllocator = l
	addr := g.Alloc(Layout{Size: 64, Align: 64})
	require.NotEqual(t, Null, addr)
	g.Dealloc(addr, Layout{Size: 64, Align: 64})
	require.Zero(t, l.Stats().Allocated)
}

func Test_LockedHeap_Concurrent(t *testing.T) {
	r := newRegion(t, 0x100000, 1<<20)
	l := NewLocked(r)
	l.Init(r.Base(), r.Size())

	const workers = 8
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			layout := Layout{Size: uint64(16 << (w % 4)), Align: 8}
			for range 500 {
				addr := l.Alloc(layout)
				if !assert.NotEqual(t, Null, addr) {
					return
				}
				b, err := r.Bytes(addr, layout.Size)
				if !assert.NoError(t, err) {
					return
				}
				// Each worker owns its block exclusively until it frees it.
				for i := range b {
					b[i] = byte(w)
				}
				for i := range b {
					if b[i] != byte(w) {
						assert.Failf(t, "block shared", "worker %d saw %d at %#x", w, b[i], addr)
						return
					}
				}
				l.Dealloc(addr, layout)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, Stats{Total: 1 << 20}, l.Stats())
	require.Equal(t, []Addr{0x100000}, l.Snapshot().Free[20])
}

func Test_LockedHeapWithRescue_AddsFallbackRegion(t *testing.T) {
	space := newSpace(t, newRegion(t, 0x1000, 0x1000))
	calls := 0
	l := NewLockedWithRescue(space, func(h *Heap) {
		calls++
		fallback := newRegion(t, 0x10000, 0x4000)
		require.NoError(t, space.Add(fallback))
		h.AddToHeap(fallback.Base(), fallback.End())
	})
	l.Init(0x1000, 0x1000)

	addr := l.Alloc(Layout{Size: 0x1000, Align: 8})
	require.Equal(t, Addr(0x1000), addr)
	require.Zero(t, calls, "rescue only runs on failure")

	addr = l.Alloc(Layout{Size: 0x2000, Align: 8})
	require.NotEqual(t, Null, addr)
	require.Equal(t, 1, calls)
	require.Equal(t, uint64(0x5000), l.Stats().Total)
}

func Test_LockedHeapWithRescue_RetriesOnce(t *testing.T) {
	r := newRegion(t, 0x1000, 64)
	calls := 0
	l := NewLockedWithRescue(r, func(h *Heap) {
		calls++
	})
	l.AddToHeap(r.Base(), r.End())

	require.Equal(t, Null, l.Alloc(Layout{Size: 128, Align: 8}))
	require.Equal(t, 1, calls)

	_, err := l.TryAlloc(Layout{Size: 128, Align: 8})
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, 2, calls, "each failing request gets its own single rescue")
}

func Test_LockedHeapWithRescue_SkipsRescueOnInvalidLayout(t *testing.T) {
	r := newRegion(t, 0x1000, 64)
	calls := 0
	l := NewLockedWithRescue(r, func(h *Heap) { calls++ })
	l.AddToHeap(r.Base(), r.End())

	_, err := l.TryAlloc(Layout{Size: 8, Align: 6})
	require.ErrorIs(t, err, ErrInvalidLayout)
	require.Zero(t, calls)
}

func Test_LockedHeapWithRescue_NilRescue(t *testing.T) {
	r := newRegion(t, 0x1000, 64)
	l := NewLockedWithRescue(r, nil)
	l.AddToHeap(r.Base(), r.End())

	require.Equal(t, Null, l.Alloc(Layout{Size: 128, Align: 8}))
	require.NotEqual(t, Null, l.Alloc(Layout{Size: 64, Align: 8}))
}

func Test_LockedHeap_ZeroValue(t *testing.T) {
	var l LockedHeap
	require.Equal(t, Null, l.Alloc(word8))
	_, err := l.TryAlloc(word8)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, Stats{}, l.Stats())

	var lr LockedHeapWithRescue
	require.Equal(t, Null, lr.Alloc(word8))

	r := newRegion(t, 0x1000, 0x1000)
	l.SetMemory(r)
	l.Init(r.Base(), r.Size())
	require.Equal(t, Addr(0x1000), l.Alloc(word8))
	require.Equal(t, Stats{User: 8, Allocated: 8, Total: 0x1000}, l.Stats())
}

func Test_LockedHeapWithRescue_RescueHoldsLock(t *testing.T) {
	space := newSpace(t, newRegion(t, 0x1000, 64))
	fallback := newRegion(t, 0x10000, 0x1000)
	entered := make(chan struct{})
	release := make(chan struct{})
	l := NewLockedWithRescue(space, func(h *Heap) {
		close(entered)
		<-release
		assert.NoError(t, space.Add(fallback))
		h.AddToHeap(fallback.Base(), fallback.End())
	})
	l.AddToHeap(0x1000, 0x1040)

	first := make(chan Addr, 1)
	go func() { first <- l.Alloc(Layout{Size: 128, Align: 8}) }()
	<-entered

	// The rescue is parked with the lock held; a second caller must wait.
	second := make(chan Addr, 1)
	go func() { second <- l.Alloc(Layout{Size: 64, Align: 8}) }()
	require.Never(t, func() bool { return len(second) > 0 },
		50*time.Millisecond, 5*time.Millisecond, "alloc completed while the rescue hook held the lock")

	close(release)
	require.Equal(t, Addr(0x10000), <-first)
	require.Equal(t, Addr(0x1000), <-second)
	require.Equal(t, uint64(64+0x1000), l.Stats().Total)
}
