package numeric

import "math"

// Real is a plain float64 Number with no derivative information.
type Real float64

func (r Real) Add(o Real) Real { return r + o }
func (r Real) Sub(o Real) Real { return r - o }
func (r Real) Mul(o Real) Real { return r * o }
func (r Real) Div(o Real) Real { return r / o }
func (r Real) Neg() Real       { return -r }
func (r Real) Exp() Real       { return Real(math.Exp(float64(r))) }
func (r Real) Log() Real       { return Real(math.Log(float64(r))) }
func (r Real) Sqrt() Real      { return Real(math.Sqrt(float64(r))) }

func (r Real) Float() float64    { return float64(r) }
func (Real) Lift(v float64) Real { return Real(v) }
