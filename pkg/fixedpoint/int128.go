package fixedpoint

import "math/bits"

// bitsMulS64 computes the signed 128-bit product a*b, returning it as
// (hi, lo) two's-complement limbs. Go has no native int128, so this is
// built on math/bits.Mul64/Sub64 the way the standard library's own
// math/big internals compose 64-bit primitives.
func bitsMulS64(a, b int64) (hi, lo uint64) {
	ua, negA := absU64(a)
	ub, negB := absU64(b)
	hi, lo = bits.Mul64(ua, ub)
	if negA != negB {
		hi, lo = neg128(hi, lo)
	}
	return hi, lo
}

func absU64(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func neg128(hi, lo uint64) (uint64, uint64) {
	lo = ^lo
	hi = ^hi
	var carry uint64
	lo, carry = bits.Add64(lo, 1, 0)
	hi, _ = bits.Add64(hi, 0, carry)
	return hi, lo
}

// divRescale divides the signed 128-bit value (hi, lo) by the positive
// divisor d, returning (quotient, remainder, ok). ok is false on overflow
// (quotient does not fit in the 128-bit domain divided cleanly, which for
// our use — dividing a price*size product by Scale — only happens on
// genuinely out-of-range inputs).
func divRescale(hi, lo uint64, d uint64) (q int64, rem uint64, ok bool) {
	neg := hi>>63 == 1
	if neg {
		hi, lo = neg128(hi, lo)
	}
	if hi >= d {
		// Quotient would not fit in 64 bits even unsigned: out of range.
		return 0, 0, false
	}
	uq, ur := bits.Div64(hi, lo, d)
	if uq > 1<<63 {
		return 0, 0, false
	}
	if neg {
		return -int64(uq), ur, true
	}
	if uq == 1<<63 {
		return 0, 0, false
	}
	return int64(uq), ur, true
}
