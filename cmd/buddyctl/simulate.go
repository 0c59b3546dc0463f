package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/joshuapare/buddykit/buddy/arena"
	"github.com/joshuapare/buddykit/buddy/heap"
	"github.com/joshuapare/buddykit/buddy/verify"
	"github.com/joshuapare/buddykit/internal/format"
	"github.com/joshuapare/buddykit/internal/logger"
)

var (
	simArena    uint64
	simBase     string
	simOps      int
	simSeed     int64
	simMaxSize  uint64
	simMaxAlign uint64
	simFreeRate float64
	simMmap     bool
	simRescue   uint64
	simDrain    bool
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().Uint64Var(&simArena, "arena", 1<<20, "Arena size in bytes")
	cmd.Flags().StringVar(&simBase, "base", "0x100000", "Arena base address")
	cmd.Flags().IntVar(&simOps, "ops", 10000, "Number of alloc/free operations")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Random seed")
	cmd.Flags().Uint64Var(&simMaxSize, "max-size", 4096, "Largest request size in bytes")
	cmd.Flags().Uint64Var(&simMaxAlign, "max-align", 64, "Largest request alignment (power of two)")
	cmd.Flags().Float64Var(&simFreeRate, "free-rate", 0.4, "Probability that an operation frees a live block")
	cmd.Flags().BoolVar(&simMmap, "mmap", false, "Back the arena with an anonymous mapping")
	cmd.Flags().Uint64Var(&simRescue, "rescue", 0, "Size of a fallback region the rescue hook maps on first OOM (0 disables)")
	cmd.Flags().BoolVar(&simDrain, "drain", false, "Free every live block before reporting")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a seeded allocation workload and check heap invariants",
		Long: `The simulate command runs a random mix of allocations and frees against a
locked heap, writes a tag into every block and checks it again before the
block is freed. Afterwards it verifies alignment, disjointness,
conservation and the usage counters.

With --rescue, the first out-of-memory failure maps a fallback region and
hands it to the heap before the allocation is retried once.

Example:
  buddyctl simulate --ops 50000 --seed 7
  buddyctl simulate --arena 65536 --rescue 262144 --json
  buddyctl simulate --mmap --drain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate()
		},
	}
	return cmd
}

// SimResult is the JSON shape of the simulate command.
type SimResult struct {
	Seed       int64       `json:"seed"`
	Ops        int         `json:"ops"`
	Allocs     int         `json:"allocs"`
	Frees      int         `json:"frees"`
	Failures   int         `json:"failures"`
	Rescues    int         `json:"rescues"`
	Live       int         `json:"live"`
	Stats      heap.Stats  `json:"stats"`
	FreeBytes  uint64      `json:"free_bytes"`
	Largest    uint64      `json:"largest_free_block"`
	FreeBlocks map[int]int `json:"free_blocks_by_class"`
	Regions    []string    `json:"regions"`
	Invariants string      `json:"invariants"`
}

type liveBlock struct {
	verify.Allocation
	tag byte
}

func runSimulate() error {
	if simArena == 0 {
		return errors.New("--arena must be positive")
	}
	if !format.IsPowerOfTwo(simMaxAlign) {
		return fmt.Errorf("--max-align must be a power of two, got %d", simMaxAlign)
	}
	if simMaxSize >= math.MaxInt64 {
		return fmt.Errorf("--max-size must be below %d, got %d", uint64(math.MaxInt64), simMaxSize)
	}
	if simFreeRate < 0 || simFreeRate > 1 {
		return fmt.Errorf("--free-rate must be within [0, 1], got %g", simFreeRate)
	}
	base, err := parseAddr(simBase)
	if err != nil {
		return err
	}

	region, err := newArenaRegion(heap.Addr(base), simArena)
	if err != nil {
		return err
	}
	space, err := arena.NewSpace(region)
	if err != nil {
		return err
	}
	defer space.Close()

	res := SimResult{Seed: simSeed, Ops: simOps}
	lh := heap.NewLockedWithRescue(space, rescueHook(space, region, &res))
	lh.AddToHeap(region.Base(), region.End())
	logger.Info("simulate start", "base", base, "arena", simArena, "ops", simOps, "seed", simSeed, "mmap", simMmap)

	rng := rand.New(rand.NewSource(simSeed))
	var live []liveBlock
	alignShift := format.Log2(simMaxAlign)

	for i := range simOps {
		if len(live) > 0 && rng.Float64() < simFreeRate {
			j := rng.Intn(len(live))
			if err := release(lh, space, live[j]); err != nil {
				return err
			}
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
			res.Frees++
			continue
		}

		layout := heap.Layout{
			Size:  uint64(rng.Int63n(int64(simMaxSize) + 1)),
			Align: uint64(1) << rng.Intn(alignShift+1),
		}
		addr, err := lh.TryAlloc(layout)
		if err != nil {
			res.Failures++
			logger.Debug("alloc failed", "op", i, "size", layout.Size, "align", layout.Align, "err", err)
			continue
		}
		b := liveBlock{Allocation: verify.Allocation{Addr: addr, Layout: layout}, tag: byte(i)}
		if err := fill(space, b); err != nil {
			return err
		}
		live = append(live, b)
		res.Allocs++
	}

	if simDrain {
		for _, b := range live {
			if err := release(lh, space, b); err != nil {
				return err
			}
			res.Frees++
		}
		live = nil
	}

	allocs := make([]verify.Allocation, len(live))
	for i, b := range live {
		allocs[i] = b.Allocation
	}
	snap := lh.Snapshot()
	verr := verify.AllInvariants(snap, allocs)

	res.Live = len(live)
	res.Stats = snap.Stats
	res.FreeBytes = snap.FreeBytes()
	res.Largest = snap.Largest()
	res.FreeBlocks = make(map[int]int)
	for c, n := range snap.Counts() {
		if n > 0 {
			res.FreeBlocks[c] = n
		}
	}
	for _, r := range space.Regions() {
		res.Regions = append(res.Regions, r.String())
	}
	res.Invariants = "ok"
	if verr != nil {
		res.Invariants = verr.Error()
	}
	logger.Info("simulate done", "allocs", res.Allocs, "frees", res.Frees, "failures", res.Failures, "invariants", res.Invariants)

	if jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printSimResult(res, snap)
	}

	if verr != nil {
		return fmt.Errorf("invariant check failed: %w", verr)
	}
	return nil
}

func newArenaRegion(base heap.Addr, size uint64) (*arena.Region, error) {
	if simMmap {
		return arena.Map(base, size)
	}
	return arena.New(base, size)
}

// rescueHook maps one fallback region of simRescue bytes, leaving a gap of
// one arena after the primary region so blocks from the two never merge.
func rescueHook(space *arena.Space, primary *arena.Region, res *SimResult) func(h *heap.Heap) {
	if simRescue == 0 {
		return nil
	}
	used := false
	return func(h *heap.Heap) {
		if used {
			return
		}
		used = true

		fbBase := primary.End() + heap.Addr(primary.Size())
		r, err := newArenaRegion(fbBase, simRescue)
		if err != nil {
			logger.Warn("rescue: map fallback region", "err", err)
			return
		}
		if err := space.Add(r); err != nil {
			logger.Warn("rescue: add fallback region", "err", err)
			_ = r.Close()
			return
		}
		h.AddToHeap(r.Base(), r.End())
		res.Rescues++
		logger.Debug("rescue: registered fallback region", "region", r.String(), "total", h.StatsTotalBytes())
	}
}

// fill writes the block's tag over its requested bytes.
func fill(space *arena.Space, b liveBlock) error {
	data, err := space.Bytes(b.Addr, b.Layout.Size)
	if err != nil {
		return err
	}
	for i := range data {
		data[i] = b.tag
	}
	return nil
}

// release checks the block's tag survived and frees it.
func release(lh *heap.LockedHeapWithRescue, space *arena.Space, b liveBlock) error {
	data, err := space.Bytes(b.Addr, b.Layout.Size)
	if err != nil {
		return err
	}
	for i, v := range data {
		if v != b.tag {
			return fmt.Errorf("block %#x (%v) overwritten at byte %d: got %#x, want %#x",
				b.Addr, b.Layout, i, v, b.tag)
		}
	}
	lh.Dealloc(b.Addr, b.Layout)
	return nil
}

func printSimResult(res SimResult, snap heap.Snapshot) {
	printInfo("Simulation (seed %d, %d ops)\n", res.Seed, res.Ops)
	printInfo("  Allocs: %d  Frees: %d  Failures: %d  Rescues: %d\n",
		res.Allocs, res.Frees, res.Failures, res.Rescues)
	printInfo("  Live blocks: %d\n\n", res.Live)

	printInfo("Heap:\n")
	printInfo("  Requested: %s (%d bytes)\n", formatBytes(res.Stats.User), res.Stats.User)
	printInfo("  Allocated: %s (%d bytes)\n", formatBytes(res.Stats.Allocated), res.Stats.Allocated)
	printInfo("  Free:      %s (%d bytes)\n", formatBytes(res.FreeBytes), res.FreeBytes)
	printInfo("  Total:     %s (%d bytes)\n", formatBytes(res.Stats.Total), res.Stats.Total)
	printInfo("  Largest free block: %s\n\n", formatBytes(res.Largest))

	printVerbose("Free blocks by class:\n")
	for c, blocks := range snap.Free {
		if len(blocks) > 0 {
			printVerbose("  class %2d (%s): %d\n", c, formatBytes(1<<c), len(blocks))
		}
	}
	printVerbose("Regions: %v\n", res.Regions)

	printInfo("Invariants: %s\n", res.Invariants)
}
