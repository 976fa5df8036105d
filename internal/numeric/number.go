package numeric

// Number is the arithmetic capability the projection engine is written against.
// Every model quantity is a Number so that the same code runs on plain reals and
// on derivative-carrying values.
type Number[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	Exp() T
	Log() T
	Sqrt() T
	// Float returns the primal value.
	Float() float64
	// Lift returns a constant of the receiver's type.
	Lift(v float64) T
}

// Const returns v as a constant of type T.
func Const[T Number[T]](v float64) T {
	var zero T
	return zero.Lift(v)
}

// LiftAll converts values to constants of type T.
func LiftAll[T Number[T]](values []float64) []T {
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = Const[T](v)
	}
	return out
}

// Floats returns the primal values of xs.
func Floats[T Number[T]](xs []T) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.Float()
	}
	return out
}

// ExpInto writes exp(src[i]) into dst. dst must be at least len(src).
func ExpInto[T Number[T]](dst, src []T) {
	for i, x := range src {
		dst[i] = x.Exp()
	}
}

// Fill sets every element of dst to v.
func Fill[T Number[T]](dst []T, v T) {
	for i := range dst {
		dst[i] = v
	}
}

func Sum[T Number[T]](xs []T) T {
	total := Const[T](0)
	for _, x := range xs {
		total = total.Add(x)
	}
	return total
}

// Mean returns the arithmetic mean of xs; the mean of an empty slice is zero.
func Mean[T Number[T]](xs []T) T {
	if len(xs) == 0 {
		return Const[T](0)
	}
	return Sum(xs).Div(Const[T](float64(len(xs))))
}
