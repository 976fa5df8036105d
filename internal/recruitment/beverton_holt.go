package recruitment

import (
	"fmt"
	"log/slog"
	"math"

	"stockproj/internal/numeric"
)

const (
	FormBevertonHolt = "beverton_holt"

	SteepnessLower = 0.2
	SteepnessUpper = 1.0
	// SteepnessWarnMargin is the distance from a steepness bound inside which a
	// fixed value is accepted but logged: the transform is finite but extreme.
	SteepnessWarnMargin = 1e-6
)

// BevertonHolt is the steepness-parameterized Beverton–Holt relationship:
//
//	R = 0.8 R0 h S / (0.2 R0 phi0 (1 - h) + S (h - 0.2))
//
// R0 is estimated on the log scale and h on the logit scale mapped onto
// (0.2, 1.0), so any finite LogitSteep yields a valid steepness.
type BevertonHolt[T numeric.Number[T]] struct {
	LogRZero   T
	LogitSteep T

	Logger *slog.Logger
}

func (b *BevertonHolt[T]) RZero() T {
	return b.LogRZero.Exp()
}

func (b *BevertonHolt[T]) Steepness() T {
	return numeric.InvLogitBounded(b.LogitSteep, SteepnessLower, SteepnessUpper)
}

// SetSteepness fixes steepness on the natural scale. Values on or outside the
// bounds have no finite logit and are rejected.
func (b *BevertonHolt[T]) SetSteepness(h float64) error {
	x, err := steepnessLogit(h, b.Logger)
	if err != nil {
		return err
	}
	b.LogitSteep = numeric.Const[T](x)
	return nil
}

func (b *BevertonHolt[T]) EvaluateMean(s, phi0 T) T {
	rZero := b.RZero()
	h := b.Steepness()
	c := func(v float64) T { return numeric.Const[T](v) }

	num := c(0.8).Mul(rZero).Mul(h).Mul(s)
	den := c(0.2).Mul(rZero).Mul(phi0).Mul(c(1).Sub(h)).Add(s.Mul(h.Sub(c(0.2))))
	return numeric.SafeDiv(num, den)
}

func (b *BevertonHolt[T]) Form() string { return FormBevertonHolt }

func steepnessLogit(h float64, logger *slog.Logger) (float64, error) {
	if math.IsNaN(h) || h <= SteepnessLower || h >= SteepnessUpper {
		return 0, fmt.Errorf("steepness %g not in (%g, %g): %w", h, SteepnessLower, SteepnessUpper, ErrSteepnessBound)
	}
	if h-SteepnessLower < SteepnessWarnMargin || SteepnessUpper-h < SteepnessWarnMargin {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("steepness fixed next to its bound; logit transform is extreme",
			"steepness", h, "lower", SteepnessLower, "upper", SteepnessUpper)
	}
	return numeric.LogitBounded(h, SteepnessLower, SteepnessUpper)
}
