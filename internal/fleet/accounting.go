package fleet

import "stockproj/internal/numeric"

// CalculateFishingMortality stores and returns F[y] * selectivity(age, y) for
// age index a.
func (f *Fleet[T]) CalculateFishingMortality(y, a int, age T) T {
	fa := f.FMort[y].Mul(f.Selectivity.EvaluateAt(age, y))
	f.FishingMortalityAtAge[y*f.NAges+a] = fa
	return fa
}

// AccumulateCatch records the Baranov removal for (y, a). numbersAtRisk is the
// abundance at the start of the year, z the total mortality, weight the mean
// weight at age.
//
//	C = N * F / Z * (1 - exp(-Z))
//
// F / Z is evaluated through SafeDiv so Z near zero yields zero catch rather
// than 0/0.
func (f *Fleet[T]) AccumulateCatch(y, a int, numbersAtRisk, z, weight T) {
	i := y*f.NAges + a
	one := numeric.Const[T](1)
	fa := f.FishingMortalityAtAge[i]
	catchN := numbersAtRisk.Mul(numeric.SafeDiv(fa, z)).Mul(one.Sub(z.Neg().Exp()))
	catchW := catchN.Mul(weight)

	f.CatchNumbersAtAge[i] = catchN
	f.CatchWeightAtAge[i] = catchW
	if f.CatchUnits == UnitsNumbers {
		f.ExpectedCatch[y] = f.ExpectedCatch[y].Add(catchN)
	} else {
		f.ExpectedCatch[y] = f.ExpectedCatch[y].Add(catchW)
	}
}

// AccumulateIndex records q * selectivity * N for (y, a) and adds it to the
// expected index of year y.
func (f *Fleet[T]) AccumulateIndex(y, a int, numbers, age, weight T) {
	i := y*f.NAges + a
	indexN := f.Q[y].Mul(f.Selectivity.EvaluateAt(age, y)).Mul(numbers)
	indexW := indexN.Mul(weight)

	f.IndexNumbersAtAge[i] = indexN
	f.IndexWeightAtAge[i] = indexW
	if f.IndexUnits == UnitsNumbers {
		f.ExpectedIndex[y] = f.ExpectedIndex[y].Add(indexN)
	} else {
		f.ExpectedIndex[y] = f.ExpectedIndex[y].Add(indexW)
	}
}

// EvaluateAgeComp normalizes catch and index numbers-at-age within each year.
// Row sums are floored smoothly so an all-zero year yields zero proportions.
func (f *Fleet[T]) EvaluateAgeComp() {
	normalizeRows(f.ProportionCatchNumbersAtAge, f.CatchNumbersAtAge, f.NYears, f.NAges)
	normalizeRows(f.ProportionIndexNumbersAtAge, f.IndexNumbersAtAge, f.NYears, f.NAges)
}

// EvaluateLengthComp converts catch-at-age to catch-at-length through
// AgeToLength and normalizes each year. It is a no-op without length bins.
func (f *Fleet[T]) EvaluateLengthComp() {
	if f.NLengths == 0 {
		return
	}
	zero := numeric.Const[T](0)
	for y := 0; y < f.NYears; y++ {
		for l := 0; l < f.NLengths; l++ {
			total := zero
			for a := 0; a < f.NAges; a++ {
				p := f.AgeToLength[a*f.NLengths+l]
				total = total.Add(f.CatchNumbersAtAge[y*f.NAges+a].Mul(numeric.Const[T](p)))
			}
			f.CatchNumbersAtLength[y*f.NLengths+l] = total
		}
	}
	normalizeRows(f.ProportionCatchNumbersAtLength, f.CatchNumbersAtLength, f.NYears, f.NLengths)
}

// EvaluateIndex computes log(expected index) with a smooth floor, so a
// non-positive index gives a large negative value instead of -Inf or NaN.
func (f *Fleet[T]) EvaluateIndex() {
	for y := range f.ExpectedIndex {
		f.LogExpectedIndex[y] = numeric.SafeLog(f.ExpectedIndex[y])
	}
}

func normalizeRows[T numeric.Number[T]](dst, src []T, rows, cols int) {
	for r := 0; r < rows; r++ {
		row := src[r*cols : (r+1)*cols]
		total := numeric.Sum(row)
		for c, v := range row {
			dst[r*cols+c] = numeric.SafeDiv(v, total)
		}
	}
}
