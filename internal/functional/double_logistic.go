package functional

import (
	"errors"

	"stockproj/internal/numeric"
)

// DoubleLogistic is a dome-shaped curve: an ascending logistic limb multiplied
// by the complement of a descending logistic limb.
//
//	f(x) = asc(x) * (1 - desc(x))
//
// Each limb has its own inflection point and slope.
type DoubleLogistic[T numeric.Number[T]] struct {
	InflectionPointAsc  []T
	SlopeAsc            []T
	InflectionPointDesc []T
	SlopeDesc           []T
}

func NewDoubleLogistic[T numeric.Number[T]](ipAsc, slopeAsc, ipDesc, slopeDesc T) *DoubleLogistic[T] {
	return &DoubleLogistic[T]{
		InflectionPointAsc:  []T{ipAsc},
		SlopeAsc:            []T{slopeAsc},
		InflectionPointDesc: []T{ipDesc},
		SlopeDesc:           []T{slopeDesc},
	}
}

func (d *DoubleLogistic[T]) Evaluate(x T) T {
	return d.EvaluateAt(x, 0)
}

func (d *DoubleLogistic[T]) EvaluateAt(x T, pos int) T {
	asc := logistic(x, at("inflection_point_asc", d.InflectionPointAsc, pos), at("slope_asc", d.SlopeAsc, pos))
	desc := logistic(x, at("inflection_point_desc", d.InflectionPointDesc, pos), at("slope_desc", d.SlopeDesc, pos))
	return asc.Mul(numeric.Const[T](1).Sub(desc))
}

func (d *DoubleLogistic[T]) CheckPositions(n int) error {
	return errors.Join(
		checkVector("inflection_point_asc", len(d.InflectionPointAsc), n),
		checkVector("slope_asc", len(d.SlopeAsc), n),
		checkVector("inflection_point_desc", len(d.InflectionPointDesc), n),
		checkVector("slope_desc", len(d.SlopeDesc), n),
	)
}

func (d *DoubleLogistic[T]) Form() string { return FormDoubleLogistic }
