/*
Package bitint provides the power-of-two helpers used when sizing analyser
transforms. Both functions are O(1) and allocation free.

	fftSize := bitint.NextPowerOfTwo(500) // 512
	ok := bitint.IsPowerOfTwo(fftSize)    // true

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map onto themselves: for 512, size-1 = 511 (nine bits set) and
1<<9 = 512. Without the subtraction 512 would be doubled to 1024.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Zero and negative
// sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of two have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the exponent of a power of two, or -1 when n is not one.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
