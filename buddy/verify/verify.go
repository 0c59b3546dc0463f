package verify

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/joshuapare/buddykit/buddy/freelist"
	"github.com/joshuapare/buddykit/buddy/heap"
)

// NoAddr marks a ValidationError that is not tied to one address.
const NoAddr = freelist.Nil

// ValidationError describes one broken invariant.
type ValidationError struct {
	Type    string
	Message string
	Addr    heap.Addr
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Addr != NoAddr {
		return fmt.Sprintf("%s at %#x: %s", e.Type, e.Addr, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Allocation is a live block as recorded by the caller.
type Allocation struct {
	Addr   heap.Addr
	Layout heap.Layout
}

// AllInvariants runs every check and returns the first failure.
func AllInvariants(s heap.Snapshot, live []Allocation) error {
	if err := Alignment(s); err != nil {
		return err
	}
	if err := Disjoint(s, live); err != nil {
		return err
	}
	if err := Conservation(s); err != nil {
		return err
	}
	return Accounting(s, live)
}

// Alignment checks that every free block of class c is 2^c-aligned.
func Alignment(s heap.Snapshot) error {
	for c, blocks := range s.Free {
		mask := heap.Addr(1)<<c - 1
		for _, a := range blocks {
			if a&mask != 0 {
				return &ValidationError{
					Type:    "Alignment",
					Message: fmt.Sprintf("class %d block not %d-byte aligned", c, uint64(1)<<c),
					Addr:    a,
					Details: map[string]any{"class": c},
				}
			}
		}
	}
	return nil
}

type span struct {
	start, end heap.Addr
	what       string
}

// Disjoint checks that no two free blocks or live allocations share a byte.
func Disjoint(s heap.Snapshot, live []Allocation) error {
	var spans []span
	for c, blocks := range s.Free {
		for _, a := range blocks {
			spans = append(spans, span{a, a + heap.Addr(1)<<c, fmt.Sprintf("free class %d", c)})
		}
	}
	for _, al := range live {
		size, ok := al.Layout.BlockSize()
		if !ok {
			return &ValidationError{
				Type:    "Disjoint",
				Message: fmt.Sprintf("live allocation with impossible %v", al.Layout),
				Addr:    al.Addr,
			}
		}
		spans = append(spans, span{al.Addr, al.Addr + heap.Addr(size), "live"})
	}

	slices.SortFunc(spans, func(a, b span) int {
		return cmp.Compare(a.start, b.start)
	})
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if prev.end > cur.start {
			return &ValidationError{
				Type: "Disjoint",
				Message: fmt.Sprintf("%s [%#x, %#x) overlaps %s [%#x, %#x)",
					prev.what, prev.start, prev.end, cur.what, cur.start, cur.end),
				Addr: cur.start,
			}
		}
	}
	return nil
}

// Conservation checks that every registered byte is either free or allocated.
func Conservation(s heap.Snapshot) error {
	free := s.FreeBytes()
	if s.Stats.Total != free+s.Stats.Allocated {
		return &ValidationError{
			Type:    "Conservation",
			Message: fmt.Sprintf("total %d != free %d + allocated %d", s.Stats.Total, free, s.Stats.Allocated),
			Addr:    NoAddr,
			Details: map[string]any{"total": s.Stats.Total, "free": free, "allocated": s.Stats.Allocated},
		}
	}
	return nil
}

// Accounting checks the user and allocated counters against live.
func Accounting(s heap.Snapshot, live []Allocation) error {
	var user, allocated uint64
	for _, al := range live {
		size, ok := al.Layout.BlockSize()
		if !ok {
			return &ValidationError{
				Type:    "Accounting",
				Message: fmt.Sprintf("live allocation with impossible %v", al.Layout),
				Addr:    al.Addr,
			}
		}
		user += al.Layout.Size
		allocated += size
	}
	if s.Stats.User != user {
		return &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("user counter %d, live allocations request %d", s.Stats.User, user),
			Addr:    NoAddr,
		}
	}
	if s.Stats.Allocated != allocated {
		return &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("allocated counter %d, live blocks hold %d", s.Stats.Allocated, allocated),
			Addr:    NoAddr,
		}
	}
	return nil
}
