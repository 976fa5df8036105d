package population

import "stockproj/internal/numeric"

// CalculatePhi0 returns unfished spawning output per recruit: one recruit at
// age 0 decayed by first-year natural mortality with no fishing. The
// plus-group holds the geometric sum of its own survivors,
//
//	n[last] = n[last-1] * exp(-M[last-1]) / (1 - exp(-M[last]))
//
// with the denominator floored smoothly for M near zero.
func (p *Population[T]) CalculatePhi0() T {
	one := numeric.Const[T](1)
	n := one
	phi0 := n.Mul(p.MaturityAtAge[0]).Mul(p.WeightAtAge[0])
	last := p.NAges - 1
	for a := 1; a < last; a++ {
		n = n.Mul(p.M[a-1].Neg().Exp())
		phi0 = phi0.Add(n.Mul(p.MaturityAtAge[a]).Mul(p.WeightAtAge[a]))
	}
	n = numeric.SafeDiv(n.Mul(p.M[last-1].Neg().Exp()), one.Sub(p.M[last].Neg().Exp()))
	return phi0.Add(n.Mul(p.MaturityAtAge[last]).Mul(p.WeightAtAge[last]))
}

// CalculateUnfished re-runs the projection from the same initial numbers with
// fishing mortality forced to zero. Recruitment follows the stock-recruit
// relationship driven by unfished spawning output, with the same process
// (deviations) as the fished run.
func (p *Population[T]) CalculateUnfished() {
	naa := p.UnfishedNumbersAtAge
	copy(naa[:p.NAges], p.NumbersAtAge[:p.NAges])
	for y := 0; y < p.NYears; y++ {
		p.UnfishedSpawningBiomass[y] = p.spawningOutput(naa, y)
		p.UnfishedBiomass[y] = p.biomass(naa, y)
		survive(naa, p.M, y, p.NAges)
		mean := p.Recruitment.EvaluateMean(p.UnfishedSpawningBiomass[y+1-SpawnerRecruitLag], p.Phi0)
		naa[p.At(y+1, 0)] = p.Recruitment.EvaluateProcess(y, mean).Exp()
	}
	p.UnfishedSpawningBiomass[p.NYears] = p.spawningOutput(naa, p.NYears)
	p.UnfishedBiomass[p.NYears] = p.biomass(naa, p.NYears)
}
