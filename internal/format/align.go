package format

import "math/bits"

// Alignment and power-of-two helpers for buddy-system address math.
// All helpers operate on uint64 addresses and sizes.

// AlignUp returns n rounded up to the next word boundary.
//
// Example:
//
//	AlignUp(1)  = 8
//	AlignUp(8)  = 8
//	AlignUp(9)  = 16
func AlignUp(n uint64) uint64 {
	return (n + WordMask) & ^uint64(WordMask)
}

// AlignDown returns n rounded down to the previous word boundary.
//
// Example:
//
//	AlignDown(7)  = 0
//	AlignDown(8)  = 8
//	AlignDown(15) = 8
func AlignDown(n uint64) uint64 {
	return n & ^uint64(WordMask)
}

// LowBit returns the value of the lowest set bit of n, which is the size of
// the largest power-of-two block that may start at address n.
// LowBit(0) is 0; callers treat address 0 as aligned to every size.
func LowBit(n uint64) uint64 {
	return n & (^n + 1)
}

// PrevPowerOfTwo returns the largest power of two <= n. n must be non-zero.
func PrevPowerOfTwo(n uint64) uint64 {
	return 1 << (bits.Len64(n) - 1)
}

// NextPowerOfTwo returns the smallest power of two >= n.
// NextPowerOfTwo(0) is 1. ok is false when the result does not fit in 64 bits.
func NextPowerOfTwo(n uint64) (uint64, bool) {
	if n <= 1 {
		return 1, true
	}
	if n > 1<<63 {
		return 0, false
	}
	return 1 << bits.Len64(n-1), true
}

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// Log2 returns the exponent of a power of two.
func Log2(pow2 uint64) int {
	return bits.TrailingZeros64(pow2)
}
