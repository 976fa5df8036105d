package growth

import (
	"errors"
	"fmt"

	"stockproj/internal/numeric"
)

// VonBertalanffy computes length from the von Bertalanffy curve and converts
// it to weight with the allometric relationship W = A * L^B.
//
//	L(a) = LInf * (1 - exp(-K * (a - T0)))
//
// Lengths are floored smoothly before the power so ages below T0 produce a
// tiny positive weight instead of NaN.
type VonBertalanffy[T numeric.Number[T]] struct {
	LInf []T
	K    []T
	T0   []T
	A    []T
	B    []T
}

func NewVonBertalanffy[T numeric.Number[T]](lInf, k, t0, a, b T) *VonBertalanffy[T] {
	return &VonBertalanffy[T]{LInf: []T{lInf}, K: []T{k}, T0: []T{t0}, A: []T{a}, B: []T{b}}
}

func (g *VonBertalanffy[T]) Length(age T) T {
	one := numeric.Const[T](1)
	decay := g.K[0].Neg().Mul(age.Sub(g.T0[0])).Exp()
	return g.LInf[0].Mul(one.Sub(decay))
}

func (g *VonBertalanffy[T]) Evaluate(age T) T {
	if err := g.configured(); err != nil {
		panic(err)
	}
	logLength := numeric.SafeLog(g.Length(age))
	return g.A[0].Mul(g.B[0].Mul(logLength).Exp())
}

func (g *VonBertalanffy[T]) Validate(_ []float64) error {
	return g.configured()
}

func (g *VonBertalanffy[T]) configured() error {
	var errs []error
	for _, p := range []struct {
		name string
		n    int
	}{
		{"l_inf", len(g.LInf)},
		{"k", len(g.K)},
		{"t0", len(g.T0)},
		{"a", len(g.A)},
		{"b", len(g.B)},
	} {
		if p.n == 0 {
			errs = append(errs, fmt.Errorf("von_bertalanffy %s: %w", p.name, ErrGrowthNotConfigured))
		}
	}
	return errors.Join(errs...)
}

func (g *VonBertalanffy[T]) Form() string { return FormVonBertalanffy }
