package growth

import (
	"fmt"
	"sort"

	"stockproj/internal/numeric"
)

// EWAA is empirical weight-at-age: an exact-key lookup from age to weight.
// No interpolation is performed; queried ages must match the table keys.
type EWAA[T numeric.Number[T]] struct {
	WeightAtAge map[float64]float64
}

func NewEWAA[T numeric.Number[T]](ages, weights []float64) (*EWAA[T], error) {
	if len(ages) != len(weights) {
		return nil, fmt.Errorf("ewaa: %d ages for %d weights", len(ages), len(weights))
	}
	table := make(map[float64]float64, len(ages))
	for i, age := range ages {
		table[age] = weights[i]
	}
	return &EWAA[T]{WeightAtAge: table}, nil
}

func (g *EWAA[T]) Evaluate(age T) T {
	w, ok := g.WeightAtAge[age.Float()]
	if !ok {
		panic(fmt.Errorf("ewaa age %g: %w", age.Float(), ErrMissingAge))
	}
	return numeric.Const[T](w)
}

func (g *EWAA[T]) Validate(ages []float64) error {
	var missing []float64
	for _, age := range ages {
		if _, ok := g.WeightAtAge[age]; !ok {
			missing = append(missing, age)
		}
	}
	if len(missing) > 0 {
		sort.Float64s(missing)
		return fmt.Errorf("ewaa ages %v: %w", missing, ErrMissingAge)
	}
	return nil
}

func (g *EWAA[T]) Form() string { return FormEWAA }
