package numeric

// DefaultEpsilon is the smoothing constant used by the guards below.
const DefaultEpsilon = 1e-16

// PositiveFloor is a smooth, strictly positive approximation of max(x, 0):
// 0.5 * (x + sqrt(x^2 + eps)) + eps. For arguments of order one the result is
// within rounding of x; at zero it is ~sqrt(eps)/2. The trailing eps keeps the
// value positive where the square root cancels x in floating point.
func PositiveFloor[T Number[T]](x T) T {
	return PositiveFloorEps(x, DefaultEpsilon)
}

func PositiveFloorEps[T Number[T]](x T, eps float64) T {
	e := Const[T](eps)
	half := Const[T](0.5)
	return half.Mul(x.Add(x.Mul(x).Add(e).Sqrt())).Add(e)
}

// SafeLog is log(PositiveFloor(x)). It is finite for every finite x.
func SafeLog[T Number[T]](x T) T {
	return PositiveFloor(x).Log()
}

// SafeDiv is num / PositiveFloor(den).
func SafeDiv[T Number[T]](num, den T) T {
	return num.Div(PositiveFloor(den))
}
