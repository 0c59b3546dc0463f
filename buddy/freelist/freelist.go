// Package freelist implements an intrusive singly-linked list of free memory
// blocks.
//
// Each node is the address of a free block; the link to the next node is
// stored in the first word of the block itself, so the list carries no
// metadata outside the memory it manages. Nodes are addresses into a Memory,
// never Go pointers, which keeps the allocator's bookkeeping from aliasing
// live allocations.
//
// A List is not safe for concurrent use.
package freelist

import "iter"

// Addr is a block address in the host-supplied address space.
type Addr uint64

// Nil terminates a list. It is never word-aligned, so it cannot collide with
// a block address; address 0 is a valid block.
const Nil = ^Addr(0)

// Memory is the word-addressed store holding the list links.
// LoadWord and StoreWord must accept every address that was pushed.
type Memory interface {
	LoadWord(addr Addr) uint64
	StoreWord(addr Addr, v uint64)
}

// List is an intrusive free list. The zero value is an empty list.
type List struct {
	// top is the head address plus one, so the zero List is empty. Link
	// words in memory still end with Nil.
	top Addr
}

// Empty is a list with no blocks.
var Empty = List{}

// New returns an empty list.
func New() List {
	return Empty
}

func (l *List) head() Addr {
	return l.top - 1 // wraps to Nil when empty
}

func (l *List) setHead(addr Addr) {
	l.top = addr + 1 // Nil wraps to 0
}

// IsEmpty reports whether the list holds no blocks.
func (l *List) IsEmpty() bool {
	return l.top == 0
}

// Push links addr in at the head. addr must be word-aligned, at least one
// word wide and not already on any list.
func (l *List) Push(mem Memory, addr Addr) {
	mem.StoreWord(addr, uint64(l.head()))
	l.setHead(addr)
}

// Pop unlinks and returns the head block.
func (l *List) Pop(mem Memory) (Addr, bool) {
	if l.IsEmpty() {
		return 0, false
	}
	addr := l.head()
	l.setHead(Addr(mem.LoadWord(addr)))
	return addr, true
}

// All yields the blocks from head to tail. The list must not be modified
// during the iteration; use Cursor for find-and-remove.
func (l *List) All(mem Memory) iter.Seq[Addr] {
	return func(yield func(Addr) bool) {
		for cur := l.head(); cur != Nil; cur = Addr(mem.LoadWord(cur)) {
			if !yield(cur) {
				return
			}
		}
	}
}

// Len walks the list and counts its blocks.
func (l *List) Len(mem Memory) int {
	n := 0
	for range l.All(mem) {
		n++
	}
	return n
}

// Cursor returns a fresh forward cursor positioned before the head.
func (l *List) Cursor(mem Memory) *Cursor {
	return &Cursor{list: l, mem: mem, prev: Nil, cur: Nil}
}
