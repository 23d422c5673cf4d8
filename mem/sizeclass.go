package mem

import "math/bits"

// sizeFloor is the minimum rounded allocation size (Q in spec terms),
// matching cache-line and SIMD load alignment.
const sizeFloor = 64

// minVectorWidthForPacking is the vector width at or above which Host and
// HostAsync allocations are rounded to packet-aligned multiples instead of
// the plain 64-byte floor.
const minVectorWidthForPacking = 16

// roundSize computes the cache size class for a requested allocation:
// round up to a multiple of Q, then round up again to the next power of
// two. Q is 64 normally, or vectorWidth*8 for Host/HostAsync kinds when
// vectorWidth >= minVectorWidthForPacking (the host-batched path needs
// packet-aligned tails). Requesting size 0 is the caller's job to special
// case (Alloc returns a null pointer with no side effects); roundSize is
// never called with size 0.
func roundSize(kind Kind, requested uintptr, vectorWidth int) uintptr {
	q := uintptr(sizeFloor)
	if (kind == Host || kind == HostAsync) && vectorWidth >= minVectorWidthForPacking {
		q = uintptr(vectorWidth) * 8
	}

	rounded := ceilToMultiple(requested, q)
	return nextPow2(rounded)
}

// ceilToMultiple rounds x up to the next multiple of q (q > 0).
func ceilToMultiple(x, q uintptr) uintptr {
	return (x + q - 1) / q * q
}

// nextPow2 rounds x up to the next power of two. x must be > 0.
func nextPow2(x uintptr) uintptr {
	if x&(x-1) == 0 {
		return x
	}
	return uintptr(1) << bits.Len(uint(x))
}
