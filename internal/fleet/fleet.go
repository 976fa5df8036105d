// Package fleet holds one gear's fishing mortality and catchability and turns
// population-level removals into fleet catch, survey index and compositions.
package fleet

import (
	"errors"
	"fmt"

	"stockproj/internal/functional"
	"stockproj/internal/numeric"
)

var (
	ErrDimensionMismatch = errors.New("fleet dimension mismatch")
	ErrMissingComponent  = errors.New("fleet component missing")
	ErrUnknownUnits      = errors.New("unknown units")
)

// Units selects whether aggregate catch or index is summed in weight or numbers.
type Units string

const (
	UnitsWeight  Units = "weight"
	UnitsNumbers Units = "numbers"
)

// Selectivity is the age-vulnerability curve of a fleet.
type Selectivity[T numeric.Number[T]] = functional.Curve[T]

// Fleet is one gear. Parameters are set by the caller; everything below the
// derived marker is owned by the fleet and rewritten on every evaluation.
type Fleet[T numeric.Number[T]] struct {
	ID          int
	Name        string
	LogFMort    []T
	LogQ        []T
	Selectivity Selectivity[T]
	IsSurvey    bool
	CatchUnits  Units
	IndexUnits  Units
	// AgeToLength is an optional row-major [NAges x NLengths] matrix giving the
	// proportion of each age class falling in each length bin.
	AgeToLength []float64
	NLengths    int

	NYears int
	NAges  int

	// derived
	FMort                          []T
	Q                              []T
	FishingMortalityAtAge          []T
	CatchNumbersAtAge              []T
	CatchWeightAtAge               []T
	IndexNumbersAtAge              []T
	IndexWeightAtAge               []T
	ExpectedCatch                  []T
	ExpectedIndex                  []T
	LogExpectedIndex               []T
	ProportionCatchNumbersAtAge    []T
	ProportionIndexNumbersAtAge    []T
	CatchNumbersAtLength           []T
	ProportionCatchNumbersAtLength []T
}

// Initialize fixes the dimensions and allocates every derived array. A fleet
// without catchability gets log q = 0.
func (f *Fleet[T]) Initialize(nYears, nAges int) {
	f.NYears = nYears
	f.NAges = nAges
	if len(f.LogQ) == 0 {
		f.LogQ = []T{numeric.Const[T](0)}
	}
	if f.CatchUnits == "" {
		f.CatchUnits = UnitsWeight
	}
	if f.IndexUnits == "" {
		f.IndexUnits = UnitsWeight
	}

	yearAge := nYears * nAges
	f.FMort = make([]T, nYears)
	f.Q = make([]T, nYears)
	f.FishingMortalityAtAge = make([]T, yearAge)
	f.CatchNumbersAtAge = make([]T, yearAge)
	f.CatchWeightAtAge = make([]T, yearAge)
	f.IndexNumbersAtAge = make([]T, yearAge)
	f.IndexWeightAtAge = make([]T, yearAge)
	f.ExpectedCatch = make([]T, nYears)
	f.ExpectedIndex = make([]T, nYears)
	f.LogExpectedIndex = make([]T, nYears)
	f.ProportionCatchNumbersAtAge = make([]T, yearAge)
	f.ProportionIndexNumbersAtAge = make([]T, yearAge)
	f.CatchNumbersAtLength = make([]T, nYears*f.NLengths)
	f.ProportionCatchNumbersAtLength = make([]T, nYears*f.NLengths)
	f.zero()
}

// CheckDims reports configuration errors against the model dimensions.
func (f *Fleet[T]) CheckDims(nYears, nAges int) error {
	var errs []error
	if f.Selectivity == nil {
		errs = append(errs, fmt.Errorf("fleet %q selectivity: %w", f.Name, ErrMissingComponent))
	} else if err := f.Selectivity.CheckPositions(nYears); err != nil {
		errs = append(errs, fmt.Errorf("fleet %q selectivity: %w", f.Name, err))
	}
	if !f.IsSurvey && len(f.LogFMort) != nYears {
		errs = append(errs, fmt.Errorf("fleet %q log_fmort has %d values, need %d: %w", f.Name, len(f.LogFMort), nYears, ErrDimensionMismatch))
	}
	if n := len(f.LogQ); n > 1 && n != nYears {
		errs = append(errs, fmt.Errorf("fleet %q log_q has %d values, need 1 or %d: %w", f.Name, n, nYears, ErrDimensionMismatch))
	}
	if f.NLengths > 0 && len(f.AgeToLength) != nAges*f.NLengths {
		errs = append(errs, fmt.Errorf("fleet %q age_to_length has %d values, need %d: %w", f.Name, len(f.AgeToLength), nAges*f.NLengths, ErrDimensionMismatch))
	}
	for _, u := range []Units{f.CatchUnits, f.IndexUnits} {
		if u != "" && u != UnitsWeight && u != UnitsNumbers {
			errs = append(errs, fmt.Errorf("fleet %q units %q: %w", f.Name, u, ErrUnknownUnits))
		}
	}
	return errors.Join(errs...)
}

// Prepare exponentiates the log-scale parameters and zero-fills every derived
// accumulator. It must run once per evaluation before the population recurrence.
func (f *Fleet[T]) Prepare() {
	zero := numeric.Const[T](0)
	for y := 0; y < f.NYears; y++ {
		if f.IsSurvey {
			f.FMort[y] = zero
		} else {
			f.FMort[y] = f.LogFMort[y].Exp()
		}
		f.Q[y] = logQAt(f.LogQ, y).Exp()
	}
	f.zero()
}

func (f *Fleet[T]) zero() {
	zero := numeric.Const[T](0)
	for _, buf := range [][]T{
		f.FishingMortalityAtAge,
		f.CatchNumbersAtAge,
		f.CatchWeightAtAge,
		f.IndexNumbersAtAge,
		f.IndexWeightAtAge,
		f.ExpectedCatch,
		f.ExpectedIndex,
		f.LogExpectedIndex,
		f.ProportionCatchNumbersAtAge,
		f.ProportionIndexNumbersAtAge,
		f.CatchNumbersAtLength,
		f.ProportionCatchNumbersAtLength,
	} {
		numeric.Fill(buf, zero)
	}
}

func logQAt[T any](logQ []T, y int) T {
	if len(logQ) == 1 {
		return logQ[0]
	}
	return logQ[y]
}
