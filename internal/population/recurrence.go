package population

import "stockproj/internal/numeric"

// CalculateMortality fills MortalityF and MortalityZ for year y:
//
//	F[y,a] = sum over fleets of Fmort_f[y] * sel_f(age[a], y)
//	Z[y,a] = F[y,a] + M[y,a]
func (p *Population[T]) CalculateMortality(y int) {
	for a := 0; a < p.NAges; a++ {
		i := p.At(y, a)
		total := numeric.Const[T](0)
		for _, f := range p.Fleets {
			total = total.Add(f.CalculateFishingMortality(y, a, p.ages[a]))
		}
		p.MortalityF[i] = total
		p.MortalityZ[i] = total.Add(p.M[i])
	}
}

// CalculateCatch records Baranov removals for every fishing fleet and the
// expected index for every fleet in year y, using numbers at the start of y.
func (p *Population[T]) CalculateCatch(y int) {
	for a := 0; a < p.NAges; a++ {
		i := p.At(y, a)
		n := p.NumbersAtAge[i]
		for _, f := range p.Fleets {
			if !f.IsSurvey {
				f.AccumulateCatch(y, a, n, p.MortalityZ[i], p.WeightAtAge[a])
			}
			f.AccumulateIndex(y, a, n, p.ages[a], p.WeightAtAge[a])
		}
	}
}

// CalculateNumbersAA moves survivors of year y into year y+1, one age older.
// The last age is a plus-group that keeps its own survivors and gains the
// survivors of the age below it. Age 0 of year y+1 is set by recruitment.
func (p *Population[T]) CalculateNumbersAA(y int) {
	survive(p.NumbersAtAge, p.MortalityZ, y, p.NAges)
}

func survive[T numeric.Number[T]](naa, z []T, y, nAges int) {
	from := y * nAges
	to := (y + 1) * nAges
	for a := 0; a < nAges-2; a++ {
		naa[to+a+1] = naa[from+a].Mul(z[from+a].Neg().Exp())
	}
	last := nAges - 1
	naa[to+last] = naa[from+last].Mul(z[from+last].Neg().Exp()).
		Add(naa[from+last-1].Mul(z[from+last-1].Neg().Exp()))
}

// CalculateSpawningBiomass sets SpawningBiomass[y] = sum_a N[y,a] * mat(a) * w(a).
func (p *Population[T]) CalculateSpawningBiomass(y int) {
	p.SpawningBiomass[y] = p.spawningOutput(p.NumbersAtAge, y)
}

// CalculateBiomass sets Biomass[y] = sum_a N[y,a] * w(a).
func (p *Population[T]) CalculateBiomass(y int) {
	p.Biomass[y] = p.biomass(p.NumbersAtAge, y)
}

// CalculateRecruitment sets age 0 of year y+1 from the spawning output of
// year y+1-SpawnerRecruitLag. ExpectedRecruitment holds the stock-recruit
// mean; NumbersAtAge holds the realized value.
func (p *Population[T]) CalculateRecruitment(y int) {
	mean := p.Recruitment.EvaluateMean(p.SpawningBiomass[y+1-SpawnerRecruitLag], p.Phi0)
	p.ExpectedRecruitment[y+1] = mean
	p.NumbersAtAge[p.At(y+1, 0)] = p.Recruitment.EvaluateProcess(y, mean).Exp()
}

func (p *Population[T]) spawningOutput(naa []T, y int) T {
	total := numeric.Const[T](0)
	for a := 0; a < p.NAges; a++ {
		total = total.Add(naa[p.At(y, a)].Mul(p.MaturityAtAge[a]).Mul(p.WeightAtAge[a]))
	}
	return total
}

func (p *Population[T]) biomass(naa []T, y int) T {
	total := numeric.Const[T](0)
	for a := 0; a < p.NAges; a++ {
		total = total.Add(naa[p.At(y, a)].Mul(p.WeightAtAge[a]))
	}
	return total
}
