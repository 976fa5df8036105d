package numeric

import (
	"errors"
	"fmt"
	"math"
)

var ErrOutsideBounds = errors.New("value outside transform bounds")

// InvLogit maps the real line onto (0, 1).
func InvLogit[T Number[T]](x T) T {
	one := Const[T](1)
	return one.Div(one.Add(x.Neg().Exp()))
}

// InvLogitBounded maps the real line onto (lo, hi).
func InvLogitBounded[T Number[T]](x T, lo, hi float64) T {
	return Const[T](lo).Add(Const[T](hi - lo).Mul(InvLogit(x)))
}

// Logit is the inverse of InvLogit on plain values.
func Logit(p float64) (float64, error) {
	if !(p > 0 && p < 1) {
		return 0, fmt.Errorf("logit(%g): %w", p, ErrOutsideBounds)
	}
	return math.Log(p / (1 - p)), nil
}

// LogitBounded is the inverse of InvLogitBounded on plain values. Values on or
// outside (lo, hi) have no finite preimage.
func LogitBounded(v, lo, hi float64) (float64, error) {
	if !(v > lo && v < hi) {
		return 0, fmt.Errorf("logit(%g) on (%g, %g): %w", v, lo, hi, ErrOutsideBounds)
	}
	return Logit((v - lo) / (hi - lo))
}
