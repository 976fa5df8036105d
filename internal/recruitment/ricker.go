package recruitment

import (
	"fmt"
	"math"

	"stockproj/internal/numeric"
)

const FormRicker = "ricker"

// Ricker is the steepness-parameterized Ricker relationship:
//
//	R = (S / phi0) * exp(log(5h) / 0.8 * (1 - S / (R0 phi0)))
//
// Ricker steepness may exceed one, so it is parameterized as h = 0.2 + exp(LogSteepExcess).
type Ricker[T numeric.Number[T]] struct {
	LogRZero       T
	LogSteepExcess T
}

func (r *Ricker[T]) RZero() T {
	return r.LogRZero.Exp()
}

func (r *Ricker[T]) Steepness() T {
	return numeric.Const[T](SteepnessLower).Add(r.LogSteepExcess.Exp())
}

func (r *Ricker[T]) SetSteepness(h float64) error {
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= SteepnessLower {
		return fmt.Errorf("ricker steepness %g not above %g: %w", h, SteepnessLower, ErrSteepnessBound)
	}
	r.LogSteepExcess = numeric.Const[T](math.Log(h - SteepnessLower))
	return nil
}

func (r *Ricker[T]) EvaluateMean(s, phi0 T) T {
	c := func(v float64) T { return numeric.Const[T](v) }
	perRecruit := numeric.SafeDiv(s, phi0)
	beta := c(5).Mul(r.Steepness()).Log().Div(c(0.8))
	depletion := numeric.SafeDiv(s, r.RZero().Mul(phi0))
	return perRecruit.Mul(beta.Mul(c(1).Sub(depletion)).Exp())
}

func (r *Ricker[T]) Form() string { return FormRicker }
