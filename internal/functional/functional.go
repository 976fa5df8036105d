// Package functional holds the closed set of age/length response curves used
// for selectivity and maturity.
//
// Every parameter is a vector. A vector of length one is broadcast to every
// position; longer vectors are indexed by position (typically the model year).
package functional

import (
	"errors"
	"fmt"

	"stockproj/internal/numeric"
)

var (
	ErrPositionOutOfRange = errors.New("parameter position out of range")
	ErrMissingParameter   = errors.New("parameter vector is empty")
)

// Curve maps an age or length to a value in [0, 1].
type Curve[T numeric.Number[T]] interface {
	// Evaluate uses the first (or broadcast) parameter values.
	Evaluate(x T) T
	// EvaluateAt uses the parameter values at pos. Positions beyond a non-broadcast
	// vector are a configuration error and panic; call CheckPositions first.
	EvaluateAt(x T, pos int) T
	// CheckPositions reports whether every parameter vector can serve n positions.
	CheckPositions(n int) error
	// Form is the canonical variant name.
	Form() string
}

const (
	FormLogistic       = "logistic"
	FormDoubleLogistic = "double_logistic"
)

func at[T any](name string, values []T, pos int) T {
	if len(values) == 1 {
		return values[0]
	}
	if pos < 0 || pos >= len(values) {
		panic(fmt.Errorf("%s[%d] of %d: %w", name, pos, len(values), ErrPositionOutOfRange))
	}
	return values[pos]
}

func checkVector(name string, size, n int) error {
	switch {
	case size == 0:
		return fmt.Errorf("%s: %w", name, ErrMissingParameter)
	case size == 1 || size >= n:
		return nil
	default:
		return fmt.Errorf("%s has %d values, need 1 or %d: %w", name, size, n, ErrPositionOutOfRange)
	}
}

// logistic evaluates 1 / (1 + exp(-slope * (x - ip))). The exponent is kept
// non-positive so steep curves underflow to 0 instead of overflowing.
func logistic[T numeric.Number[T]](x, ip, slope T) T {
	one := numeric.Const[T](1)
	z := slope.Mul(x.Sub(ip))
	if z.Float() >= 0 {
		return one.Div(one.Add(z.Neg().Exp()))
	}
	e := z.Exp()
	return e.Div(one.Add(e))
}
