package numeric

import "math"

// Dual is a forward-mode dual number: Val carries the primal value and Der the
// derivative of Val along a single seeded direction.
type Dual struct {
	Val float64 `json:"val"`
	Der float64 `json:"der"`
}

// Variable returns a Dual seeded with unit derivative.
func Variable(v float64) Dual {
	return Dual{Val: v, Der: 1}
}

func (d Dual) Add(o Dual) Dual { return Dual{Val: d.Val + o.Val, Der: d.Der + o.Der} }
func (d Dual) Sub(o Dual) Dual { return Dual{Val: d.Val - o.Val, Der: d.Der - o.Der} }

// tangent scales a derivative by a chain-rule factor. A zero derivative stays
// zero even when the factor overflows, so unseeded terms never turn into NaN.
func tangent(der, factor float64) float64 {
	if der == 0 {
		return 0
	}
	return der * factor
}

func (d Dual) Mul(o Dual) Dual {
	return Dual{Val: d.Val * o.Val, Der: tangent(d.Der, o.Val) + tangent(o.Der, d.Val)}
}

func (d Dual) Div(o Dual) Dual {
	v := d.Val / o.Val
	return Dual{Val: v, Der: d.Der/o.Val - tangent(o.Der/o.Val, v)}
}

func (d Dual) Neg() Dual { return Dual{Val: -d.Val, Der: -d.Der} }

// d/dx exp(x) = exp(x)
func (d Dual) Exp() Dual {
	e := math.Exp(d.Val)
	return Dual{Val: e, Der: tangent(d.Der, e)}
}

// d/dx log(x) = 1/x
func (d Dual) Log() Dual {
	return Dual{Val: math.Log(d.Val), Der: tangent(d.Der, 1/d.Val)}
}

// d/dx sqrt(x) = 1/(2 sqrt(x))
func (d Dual) Sqrt() Dual {
	s := math.Sqrt(d.Val)
	return Dual{Val: s, Der: tangent(d.Der, 1/(2*s))}
}

func (d Dual) Float() float64    { return d.Val }
func (Dual) Lift(v float64) Dual { return Dual{Val: v} }

// Derivatives returns the Der component of each element.
func Derivatives(xs []Dual) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.Der
	}
	return out
}
