package functional

import (
	"errors"

	"stockproj/internal/numeric"
)

// Logistic is the asymptotic curve 1 / (1 + exp(-slope * (x - inflection_point))).
type Logistic[T numeric.Number[T]] struct {
	InflectionPoint []T
	Slope           []T
}

func NewLogistic[T numeric.Number[T]](inflectionPoint, slope T) *Logistic[T] {
	return &Logistic[T]{InflectionPoint: []T{inflectionPoint}, Slope: []T{slope}}
}

func (l *Logistic[T]) Evaluate(x T) T {
	return l.EvaluateAt(x, 0)
}

func (l *Logistic[T]) EvaluateAt(x T, pos int) T {
	return logistic(x, at("inflection_point", l.InflectionPoint, pos), at("slope", l.Slope, pos))
}

func (l *Logistic[T]) CheckPositions(n int) error {
	return errors.Join(
		checkVector("inflection_point", len(l.InflectionPoint), n),
		checkVector("slope", len(l.Slope), n),
	)
}

func (l *Logistic[T]) Form() string { return FormLogistic }
