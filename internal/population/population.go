// Package population projects an age-structured population forward in time.
//
// A Population owns numbers-at-age and natural mortality and references one
// Recruitment, one Maturity, one Growth and any number of Fleets. Each call to
// Evaluate overwrites every derived array, so repeated evaluations with the
// same parameters produce identical output.
//
// Arrays are flattened row-major, year first then age:
//
//	NumbersAtAge[y*NAges + a]   y in [0, NYears], a in [0, NAges)
//	LogM[y*NAges + a]           y in [0, NYears)
//
// Year NYears of NumbersAtAge is the terminal projected state. The last age
// class is a plus-group.
package population

import (
	"errors"
	"fmt"
	"log/slog"

	"stockproj/internal/fleet"
	"stockproj/internal/functional"
	"stockproj/internal/growth"
	"stockproj/internal/numeric"
)

var (
	ErrDimensionMismatch = errors.New("population dimension mismatch")
	ErrMissingComponent  = errors.New("population component missing")
)

// SpawnerRecruitLag is the number of years between spawning and recruitment:
// recruits entering age 0 at the start of year y+1 are produced by
// SpawningBiomass[y].
const SpawnerRecruitLag = 1

// Maturity is the proportion mature at age.
type Maturity[T numeric.Number[T]] = functional.Curve[T]

// Growth is weight at age.
type Growth[T numeric.Number[T]] = growth.Growth[T]

// Recruitment is the capability the projector needs from a recruitment model.
type Recruitment[T numeric.Number[T]] interface {
	EvaluateMean(spawners, phi0 T) T
	// EvaluateProcess returns realized log recruitment at pos given the mean.
	EvaluateProcess(pos int, mean T) T
	Prepare()
	CheckPositions(n int) error
}

type Population[T numeric.Number[T]] struct {
	ID     int
	Name   string
	NYears int
	NAges  int
	// Ages is the reference age of each age class.
	Ages       []float64
	LogM       []T
	LogInitNAA []T

	Recruitment Recruitment[T]
	Maturity    Maturity[T]
	Growth      Growth[T]
	Fleets      []*fleet.Fleet[T]

	Logger *slog.Logger

	// derived
	M                   []T
	MortalityF          []T
	MortalityZ          []T
	NumbersAtAge        []T
	Biomass             []T
	SpawningBiomass     []T
	ExpectedRecruitment []T
	WeightAtAge         []T
	MaturityAtAge       []T
	Phi0                T

	UnfishedNumbersAtAge    []T
	UnfishedBiomass         []T
	UnfishedSpawningBiomass []T

	ages        []T
	initialized bool
}

// Validate reports every configuration error: dimensions, missing
// sub-models and parameter vectors that cannot cover the model years.
func (p *Population[T]) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if p.NYears < 1 {
		add(fmt.Errorf("n_years = %d: %w", p.NYears, ErrDimensionMismatch))
	}
	if p.NAges < 2 {
		add(fmt.Errorf("n_ages = %d, need at least 2 for a plus-group: %w", p.NAges, ErrDimensionMismatch))
	}
	if len(p.Ages) != p.NAges {
		add(fmt.Errorf("ages has %d values, need %d: %w", len(p.Ages), p.NAges, ErrDimensionMismatch))
	}
	if len(p.LogM) != p.NYears*p.NAges {
		add(fmt.Errorf("log_m has %d values, need %d: %w", len(p.LogM), p.NYears*p.NAges, ErrDimensionMismatch))
	}
	if len(p.LogInitNAA) != p.NAges {
		add(fmt.Errorf("log_init_naa has %d values, need %d: %w", len(p.LogInitNAA), p.NAges, ErrDimensionMismatch))
	}

	if p.Recruitment == nil {
		add(fmt.Errorf("recruitment: %w", ErrMissingComponent))
	} else {
		add(wrap("recruitment", p.Recruitment.CheckPositions(p.NYears)))
	}
	if p.Maturity == nil {
		add(fmt.Errorf("maturity: %w", ErrMissingComponent))
	} else {
		add(wrap("maturity", p.Maturity.CheckPositions(1)))
	}
	if p.Growth == nil {
		add(fmt.Errorf("growth: %w", ErrMissingComponent))
	} else {
		add(wrap("growth", p.Growth.Validate(p.Ages)))
	}
	if len(p.Fleets) == 0 {
		add(fmt.Errorf("fleets: %w", ErrMissingComponent))
	}
	for i, f := range p.Fleets {
		if f == nil {
			add(fmt.Errorf("fleet %d: %w", i, ErrMissingComponent))
			continue
		}
		add(f.CheckDims(p.NYears, p.NAges))
	}
	return errors.Join(errs...)
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Initialize validates the configuration and allocates every derived array,
// including those of the fleets.
func (p *Population[T]) Initialize() error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.allocate()
	p.logger().Debug("population initialized",
		"population", p.Name, "n_years", p.NYears, "n_ages", p.NAges, "n_fleets", len(p.Fleets))
	return nil
}

func (p *Population[T]) allocate() {
	yearAge := p.NYears * p.NAges
	stateLen := (p.NYears + 1) * p.NAges
	p.M = make([]T, yearAge)
	p.MortalityF = make([]T, yearAge)
	p.MortalityZ = make([]T, yearAge)
	p.NumbersAtAge = make([]T, stateLen)
	p.Biomass = make([]T, p.NYears+1)
	p.SpawningBiomass = make([]T, p.NYears+1)
	p.ExpectedRecruitment = make([]T, p.NYears+1)
	p.WeightAtAge = make([]T, p.NAges)
	p.MaturityAtAge = make([]T, p.NAges)
	p.UnfishedNumbersAtAge = make([]T, stateLen)
	p.UnfishedBiomass = make([]T, p.NYears+1)
	p.UnfishedSpawningBiomass = make([]T, p.NYears+1)
	p.ages = numeric.LiftAll[T](p.Ages)

	for _, f := range p.Fleets {
		f.Initialize(p.NYears, p.NAges)
	}
	p.initialized = true
}

// reshaped reports whether dimensions or fleets changed since the derived
// arrays were allocated.
func (p *Population[T]) reshaped() bool {
	if len(p.M) != p.NYears*p.NAges || len(p.ages) != p.NAges {
		return true
	}
	for _, f := range p.Fleets {
		if f.NYears != p.NYears || f.NAges != p.NAges || len(f.FMort) != p.NYears {
			return true
		}
	}
	return false
}

// Prepare exponentiates log parameters, caches growth and maturity at the
// reference ages, computes unfished spawning output per recruit and resets
// every accumulator of the population and its fleets.
func (p *Population[T]) Prepare() {
	zero := numeric.Const[T](0)
	for _, buf := range [][]T{
		p.MortalityF, p.MortalityZ, p.NumbersAtAge, p.Biomass, p.SpawningBiomass,
		p.ExpectedRecruitment, p.UnfishedNumbersAtAge, p.UnfishedBiomass, p.UnfishedSpawningBiomass,
	} {
		numeric.Fill(buf, zero)
	}
	numeric.ExpInto(p.M, p.LogM)
	for a, age := range p.ages {
		p.WeightAtAge[a] = p.Growth.Evaluate(age)
		p.MaturityAtAge[a] = p.Maturity.Evaluate(age)
	}
	for _, f := range p.Fleets {
		f.Prepare()
	}
	p.Recruitment.Prepare()
	p.Phi0 = p.CalculatePhi0()
}

// Evaluate runs the full projection. The configuration is validated on every
// call and configuration errors are returned before any state is written.
// Derived arrays are reallocated when dimensions or fleets changed.
func (p *Population[T]) Evaluate() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !p.initialized || p.reshaped() {
		p.allocate()
	}
	p.Prepare()

	for a := 0; a < p.NAges; a++ {
		p.NumbersAtAge[a] = p.LogInitNAA[a].Exp()
	}
	p.ExpectedRecruitment[0] = p.NumbersAtAge[0]

	for y := 0; y < p.NYears; y++ {
		p.CalculateMortality(y)
		p.CalculateSpawningBiomass(y)
		p.CalculateBiomass(y)
		p.CalculateCatch(y)
		p.CalculateNumbersAA(y)
		p.CalculateRecruitment(y)
	}
	p.CalculateSpawningBiomass(p.NYears)
	p.CalculateBiomass(p.NYears)

	for _, f := range p.Fleets {
		f.EvaluateAgeComp()
		f.EvaluateLengthComp()
		f.EvaluateIndex()
	}
	p.CalculateUnfished()
	return nil
}

func (p *Population[T]) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// At returns the flattened index of (year, age).
func (p *Population[T]) At(y, a int) int {
	return y*p.NAges + a
}
