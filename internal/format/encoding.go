package format

import "encoding/binary"

// Free-list links are stored as little-endian 64-bit words at the start of
// each free block. The byte order is fixed so an arena dump reads the same
// regardless of host.

// PutWord writes v as a little-endian link word at b[off:off+WordSize].
func PutWord(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+WordSize], v)
}

// ReadWord reads a little-endian link word from b[off:off+WordSize].
func ReadWord(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+WordSize])
}
