package arena

// Sparse is a word store that keeps only the words written to it. It backs
// dry runs over address ranges nothing has mapped, e.g. showing how a range
// would be tiled. Unwritten words read as zero. Sparse is not safe for
// concurrent use.
type Sparse struct {
	words map[Addr]uint64
}

// NewSparse returns an empty sparse store.
func NewSparse() *Sparse {
	return &Sparse{words: make(map[Addr]uint64)}
}

// LoadWord reads the word at addr.
func (s *Sparse) LoadWord(addr Addr) uint64 {
	return s.words[addr]
}

// StoreWord writes the word at addr.
func (s *Sparse) StoreWord(addr Addr, v uint64) {
	s.words[addr] = v
}

// Words returns the number of distinct words written.
func (s *Sparse) Words() int {
	return len(s.words)
}
