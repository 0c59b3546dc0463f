// Package buf contains overflow-safe address arithmetic used when turning
// allocator addresses into byte offsets of a backing buffer.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow uint64.
func AddOverflowSafe(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// CheckSpan validates that [addr, addr+n) lies inside [base, base+size) and
// returns the offset of addr from base.
//
//	off, err := buf.CheckSpan(base, uint64(len(data)), addr, format.WordSize)
//	if err != nil {
//	    return fmt.Errorf("arena: %w", err)
//	}
//	word := data[off : off+format.WordSize]
func CheckSpan(base, size, addr, n uint64) (uint64, error) {
	if addr < base {
		return 0, fmt.Errorf("below region: addr=%#x < base=%#x", addr, base)
	}
	off := addr - base
	end, ok := AddOverflowSafe(off, n)
	if !ok {
		return 0, fmt.Errorf("overflow: addr=%#x + len=%d", addr, n)
	}
	if end > size {
		return 0, fmt.Errorf("bounds: end=%#x > region end=%#x", base+end, base+size)
	}
	return off, nil
}
