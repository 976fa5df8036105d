// Package recruitment computes the number of new recruits entering the youngest
// age class from the spawning output of the previous year.
//
// A Recruitment pairs a stock-recruit relationship, which gives the expected
// (mean) recruitment for a spawning output, with a process that turns the mean
// into the realized log recruitment for a year.
package recruitment

import (
	"errors"
	"fmt"

	"stockproj/internal/numeric"
)

var (
	ErrSteepnessBound     = errors.New("steepness outside its transform bounds")
	ErrPositionOutOfRange = errors.New("recruitment position out of range")
	ErrNotConfigured      = errors.New("recruitment not configured")
)

// StockRecruit is a stock-recruit relationship.
type StockRecruit[T numeric.Number[T]] interface {
	// EvaluateMean returns expected recruitment for spawning output s given
	// unfished spawning output per recruit phi0.
	EvaluateMean(s, phi0 T) T
	Form() string
}

// Process turns mean recruitment into realized log recruitment.
type Process[T numeric.Number[T]] interface {
	Prepare()
	Evaluate(pos int, mean T) T
	CheckPositions(n int) error
	Name() string
}

// Recruitment couples a relationship with a process.
type Recruitment[T numeric.Number[T]] struct {
	Relationship StockRecruit[T]
	Process      Process[T]
}

func New[T numeric.Number[T]](relationship StockRecruit[T], process Process[T]) *Recruitment[T] {
	return &Recruitment[T]{Relationship: relationship, Process: process}
}

func (r *Recruitment[T]) EvaluateMean(s, phi0 T) T {
	return r.Relationship.EvaluateMean(s, phi0)
}

// EvaluateProcess returns the realized log recruitment at pos.
func (r *Recruitment[T]) EvaluateProcess(pos int, mean T) T {
	return r.Process.Evaluate(pos, mean)
}

func (r *Recruitment[T]) Prepare() {
	r.Process.Prepare()
}

func (r *Recruitment[T]) CheckPositions(n int) error {
	if r.Relationship == nil || r.Process == nil {
		return fmt.Errorf("relationship and process are required: %w", ErrNotConfigured)
	}
	return r.Process.CheckPositions(n)
}
