package population

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"stockproj/internal/model"
	"stockproj/internal/numeric"
)

var ErrUnknownQuantity = errors.New("unknown derived quantity")

// Snapshot copies the primal values of every derived array.
func (p *Population[T]) Snapshot() model.PopulationOutput {
	out := model.PopulationOutput{
		Name:                    p.Name,
		NYears:                  p.NYears,
		NAges:                   p.NAges,
		Ages:                    append([]float64(nil), p.Ages...),
		Phi0:                    p.Phi0.Float(),
		NumbersAtAge:            numeric.Floats(p.NumbersAtAge),
		Biomass:                 numeric.Floats(p.Biomass),
		SpawningBiomass:         numeric.Floats(p.SpawningBiomass),
		ExpectedRecruitment:     numeric.Floats(p.ExpectedRecruitment),
		M:                       numeric.Floats(p.M),
		MortalityF:              numeric.Floats(p.MortalityF),
		MortalityZ:              numeric.Floats(p.MortalityZ),
		WeightAtAge:             numeric.Floats(p.WeightAtAge),
		MaturityAtAge:           numeric.Floats(p.MaturityAtAge),
		UnfishedNumbersAtAge:    numeric.Floats(p.UnfishedNumbersAtAge),
		UnfishedBiomass:         numeric.Floats(p.UnfishedBiomass),
		UnfishedSpawningBiomass: numeric.Floats(p.UnfishedSpawningBiomass),
	}
	for _, f := range p.Fleets {
		out.Fleets = append(out.Fleets, model.FleetOutput{
			Name:                           f.Name,
			IsSurvey:                       f.IsSurvey,
			NLengths:                       f.NLengths,
			FMort:                          numeric.Floats(f.FMort),
			Q:                              numeric.Floats(f.Q),
			CatchNumbersAtAge:              numeric.Floats(f.CatchNumbersAtAge),
			CatchWeightAtAge:               numeric.Floats(f.CatchWeightAtAge),
			ExpectedCatch:                  numeric.Floats(f.ExpectedCatch),
			ExpectedIndex:                  numeric.Floats(f.ExpectedIndex),
			LogExpectedIndex:               numeric.Floats(f.LogExpectedIndex),
			IndexNumbersAtAge:              numeric.Floats(f.IndexNumbersAtAge),
			ProportionCatchNumbersAtAge:    numeric.Floats(f.ProportionCatchNumbersAtAge),
			ProportionIndexNumbersAtAge:    numeric.Floats(f.ProportionIndexNumbersAtAge),
			CatchNumbersAtLength:           numeric.Floats(f.CatchNumbersAtLength),
			ProportionCatchNumbersAtLength: numeric.Floats(f.ProportionCatchNumbersAtLength),
		})
	}
	return out
}

// Quantity returns one element of a named derived array. Population arrays
// are addressed by their name ("spawning_biomass"); fleet arrays by
// "<fleet>/<name>" ("trawl/expected_catch"). A negative index counts from the
// end, so -1 is the terminal value.
func (p *Population[T]) Quantity(name string, index int) (T, error) {
	values, ok := p.quantities()[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", name, ErrUnknownQuantity)
	}
	if index < 0 {
		index += len(values)
	}
	if index < 0 || index >= len(values) {
		var zero T
		return zero, fmt.Errorf("%s[%d] of %d: %w", name, index, len(values), ErrDimensionMismatch)
	}
	return values[index], nil
}

// QuantityNames lists the names accepted by Quantity.
func (p *Population[T]) QuantityNames() []string {
	names := make([]string, 0)
	for name := range p.quantities() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Population[T]) quantities() map[string][]T {
	q := map[string][]T{
		"numbers_at_age":            p.NumbersAtAge,
		"biomass":                   p.Biomass,
		"spawning_biomass":          p.SpawningBiomass,
		"expected_recruitment":      p.ExpectedRecruitment,
		"mortality_f":               p.MortalityF,
		"mortality_z":               p.MortalityZ,
		"unfished_biomass":          p.UnfishedBiomass,
		"unfished_spawning_biomass": p.UnfishedSpawningBiomass,
		"phi0":                      {p.Phi0},
	}
	for _, f := range p.Fleets {
		prefix := strings.TrimSpace(f.Name) + "/"
		q[prefix+"expected_catch"] = f.ExpectedCatch
		q[prefix+"expected_index"] = f.ExpectedIndex
		q[prefix+"log_expected_index"] = f.LogExpectedIndex
		q[prefix+"catch_numbers_at_age"] = f.CatchNumbersAtAge
		q[prefix+"proportion_catch_numbers_at_age"] = f.ProportionCatchNumbersAtAge
	}
	return q
}
