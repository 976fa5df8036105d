// Package growth maps age to weight.
package growth

import (
	"errors"

	"stockproj/internal/numeric"
)

var (
	ErrMissingAge          = errors.New("no weight for age")
	ErrGrowthNotConfigured = errors.New("growth parameters not set")
)

// Growth returns weight (or length) at age.
type Growth[T numeric.Number[T]] interface {
	Evaluate(age T) T
	// Validate checks that every reference age can be evaluated.
	Validate(ages []float64) error
	Form() string
}

const (
	FormEWAA           = "ewaa"
	FormVonBertalanffy = "von_bertalanffy"
)
