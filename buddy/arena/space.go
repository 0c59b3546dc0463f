package arena

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/joshuapare/buddykit/internal/format"
)

// Space is an address space made of non-overlapping regions. It implements
// the heap's Memory by dispatching each word access to the owning region.
//
// Regions may be added while the space is in use, e.g. from a rescue hook;
// lookups and Add are guarded by an RWMutex.
type Space struct {
	mu      sync.RWMutex
	regions []*Region // sorted by base
}

// NewSpace returns a space holding the given regions.
func NewSpace(regions ...*Region) (*Space, error) {
	s := &Space{}
	for _, r := range regions {
		if err := s.Add(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts r into the space. It fails with ErrOverlap if r shares any
// address with a region already present.
func (s *Space) Add(r *Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.regions), func(i int) bool {
		return s.regions[i].base >= r.base
	})
	if i > 0 && s.regions[i-1].End() > r.base {
		return fmt.Errorf("%w: %v and %v", ErrOverlap, s.regions[i-1], r)
	}
	if i < len(s.regions) && r.End() > s.regions[i].base {
		return fmt.Errorf("%w: %v and %v", ErrOverlap, r, s.regions[i])
	}
	s.regions = slices.Insert(s.regions, i, r)
	return nil
}

// Regions returns the regions in address order.
func (s *Space) Regions() []*Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.regions)
}

// Size returns the total number of bytes across all regions.
func (s *Space) Size() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n uint64
	for _, r := range s.regions {
		n += r.Size()
	}
	return n
}

// find returns the region containing addr using binary search.
func (s *Space) find(addr Addr) *Region {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := sort.Search(len(s.regions), func(i int) bool {
		return s.regions[i].End() > addr
	})
	if i < len(s.regions) && s.regions[i].Contains(addr) {
		return s.regions[i]
	}
	return nil
}

// Bytes returns the n bytes starting at addr. The span must not cross regions.
func (s *Space) Bytes(addr Addr, n uint64) ([]byte, error) {
	r := s.find(addr)
	if r == nil {
		return nil, fmt.Errorf("%w: %#x is not in any region", ErrOutOfRange, addr)
	}
	return r.Bytes(addr, n)
}

// LoadWord reads the link word at addr.
func (s *Space) LoadWord(addr Addr) uint64 {
	return s.mustFind(addr).LoadWord(addr)
}

// StoreWord writes the link word at addr.
func (s *Space) StoreWord(addr Addr, v uint64) {
	s.mustFind(addr).StoreWord(addr, v)
}

func (s *Space) mustFind(addr Addr) *Region {
	r := s.find(addr)
	if r == nil {
		panic(fmt.Sprintf("buddy: word access at %#x outside every region (word size %d)", addr, format.WordSize))
	}
	return r
}

// Close closes every region and reports the first error.
func (s *Space) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for _, r := range s.regions {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.regions = nil
	return first
}
