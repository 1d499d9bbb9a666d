// Package fixedpoint implements the 9-decimal fixed-point arithmetic used
// throughout the engine for prices, sizes, and P&L. Every value is an
// integer number of nano-units (1 unit == 1_000_000_000 nano-units);
// floating point never appears past the config/logging boundary.
package fixedpoint

import (
	"errors"
	"math"
)

// Scale is the number of nano-units per whole unit (9 decimal digits).
const Scale = 1_000_000_000

// MaxSafeF64 and MinSafeF64 bound the float64 values that convert to a
// representable i64 without overflow, per spec §4.1: ±(i64::MAX / Scale).
const (
	MaxSafeF64 = float64(math.MaxInt64) / Scale
	MinSafeF64 = -MaxSafeF64
)

// ErrNotFinite is returned for NaN or infinite input.
var ErrNotFinite = errors.New("fixedpoint: value is NaN or infinite")

// ErrOutOfRange is returned when |x| exceeds the safe conversion range.
var ErrOutOfRange = errors.New("fixedpoint: value out of representable range")

// FromF64Checked converts a float64 into fixed-point nano-units, rejecting
// NaN, infinities, and magnitudes beyond MaxSafeF64.
func FromF64Checked(x float64) (int64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, ErrNotFinite
	}
	if x > MaxSafeF64 || x < MinSafeF64 {
		return 0, ErrOutOfRange
	}
	return int64(math.Round(x * Scale)), nil
}

// FromU64Checked converts an unsigned whole-unit magnitude already scaled
// by Scale; it exists for symmetry with the spec's u64 price/size inputs
// and simply validates the value fits in an int64.
func FromU64Checked(v uint64) (int64, error) {
	if v > uint64(math.MaxInt64) {
		return 0, ErrOutOfRange
	}
	return int64(v), nil
}

// ToF64 converts fixed-point nano-units back to float64.
func ToF64(v int64) float64 {
	return float64(v) / Scale
}

// ToU64 converts fixed-point nano-units to an unsigned magnitude, clamping
// negative values to zero per spec §4.1.
func ToU64(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// Mul128 multiplies two fixed-point values carrying the intermediate
// product in 128-bit width (via math/bits) and rescales by Scale,
// required by spec §4.2 for weighted-average entry-price computation so
// that intermediate overflow is never silent.
func Mul128(a, b int64) (int64, error) {
	hi, lo := bitsMulS64(a, b)
	q, rem, ok := divRescale(hi, lo, Scale)
	if !ok {
		return 0, ErrOutOfRange
	}
	_ = rem
	if q > math.MaxInt64 || q < math.MinInt64 {
		return 0, ErrOutOfRange
	}
	return int64(q), nil
}

// DivChecked divides two fixed-point values (a/b), rescaling through
// 128-bit intermediate width so the result is itself a valid fixed-point
// value rather than truncated to zero by a naive int64 division.
func DivChecked(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrOutOfRange
	}
	hi, lo := bitsMulS64(a, Scale)
	q, _, ok := divRescale(hi, lo, absUnsigned(b))
	if !ok {
		return 0, ErrOutOfRange
	}
	if b < 0 {
		q = -q
	}
	return q, nil
}

func absUnsigned(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// MulDivChecked computes a*num/den with a full 128-bit intermediate
// product, for ratio arithmetic that isn't a plain fixed-point multiply
// (e.g. scaling a price by a basis-point fraction). den must be positive.
func MulDivChecked(a, num, den int64) (int64, error) {
	if den <= 0 {
		return 0, ErrOutOfRange
	}
	hi, lo := bitsMulS64(a, num)
	q, _, ok := divRescale(hi, lo, uint64(den))
	if !ok {
		return 0, ErrOutOfRange
	}
	return q, nil
}
