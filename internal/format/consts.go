// Package format houses the low-level integer math shared by the allocator
// packages: link-word size, alignment rounding, power-of-two helpers and the
// little-endian word codec used to store free-list links inside free blocks.
package format

const (
	// WordSize is the width of a free-list link word in bytes. Every block
	// the allocator hands out is at least this large and this aligned.
	// The width is fixed so arithmetic is identical on 32- and 64-bit hosts.
	WordSize = 8

	// WordMask masks the sub-word bits of an address.
	WordMask = WordSize - 1

	// WordShift is log2(WordSize), the smallest usable size class.
	WordShift = 3
)
