package population

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockproj/internal/fleet"
	"stockproj/internal/functional"
	"stockproj/internal/growth"
	"stockproj/internal/numeric"
	"stockproj/internal/recruitment"
)

type R = numeric.Real

type fleetConfig struct {
	name     string
	logF     []float64
	ip       float64
	slope    float64
	isSurvey bool
}

type testConfig struct {
	nYears  int
	ages    []float64
	logM    float64
	initNAA []float64
	weights []float64
	fleets  []fleetConfig
	// logR switches recruitment to a fixed log-recruitment series.
	logR      []float64
	logDevs   []float64
	steepness float64
}

func build[T numeric.Number[T]](t *testing.T, cfg testConfig) *Population[T] {
	t.Helper()
	nAges := len(cfg.ages)
	lift := numeric.Const[T]

	logM := make([]T, cfg.nYears*nAges)
	numeric.Fill(logM, lift(cfg.logM))
	initNAA := make([]T, nAges)
	for a, n := range cfg.initNAA {
		initNAA[a] = lift(math.Log(n))
	}

	weights := cfg.weights
	if weights == nil {
		weights = make([]float64, nAges)
		for a := range weights {
			weights[a] = 1
		}
	}
	g, err := growth.NewEWAA[T](cfg.ages, weights)
	require.NoError(t, err)

	bh := &recruitment.BevertonHolt[T]{LogRZero: lift(math.Log(1000))}
	h := cfg.steepness
	if h == 0 {
		h = 0.75
	}
	require.NoError(t, bh.SetSteepness(h))
	var process recruitment.Process[T]
	if cfg.logR != nil {
		process = &recruitment.LogRProcess[T]{LogR: numeric.LiftAll[T](cfg.logR)}
	} else {
		process = &recruitment.LogDevProcess[T]{LogDevs: numeric.LiftAll[T](cfg.logDevs)}
	}

	p := &Population[T]{
		Name:        "test",
		NYears:      cfg.nYears,
		NAges:       nAges,
		Ages:        cfg.ages,
		LogM:        logM,
		LogInitNAA:  initNAA,
		Recruitment: recruitment.New(recruitment.StockRecruit[T](bh), process),
		Maturity:    functional.NewLogistic(lift(1), lift(2)),
		Growth:      g,
	}
	for _, fc := range cfg.fleets {
		p.Fleets = append(p.Fleets, &fleet.Fleet[T]{
			Name:        fc.name,
			LogFMort:    numeric.LiftAll[T](fc.logF),
			IsSurvey:    fc.isSurvey,
			Selectivity: functional.NewLogistic(lift(fc.ip), lift(fc.slope)),
		})
	}
	return p
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestConcreteOneYearScenario(t *testing.T) {
	cfg := testConfig{
		nYears:  1,
		ages:    []float64{0, 1},
		logM:    math.Log(0.2),
		initNAA: []float64{1000, 500},
		fleets:  []fleetConfig{{name: "f1", logF: []float64{0}, ip: 0, slope: 10}},
	}
	p := build[R](t, cfg)
	require.NoError(t, p.Evaluate())

	// Logistic selectivity is exactly one half at its inflection point.
	sel0 := 0.5
	sel1 := 1 / (1 + math.Exp(-10.0))
	z0, z1 := sel0+0.2, sel1+0.2
	assert.InDelta(t, z0, p.MortalityZ[0].Float(), 1e-12)
	assert.InDelta(t, z1, p.MortalityZ[1].Float(), 1e-12)
	assert.InDelta(t, 1000*math.Exp(-z0)+500*math.Exp(-z1), p.NumbersAtAge[p.At(1, 1)].Float(), 1e-9)
	assert.InDelta(t, 1000*sel0/z0*(1-math.Exp(-z0)), p.Fleets[0].CatchNumbersAtAge[0].Float(), 1e-9)

	// Moving the inflection point below age 0 selects both ages fully.
	cfg.fleets[0].ip = -1
	p = build[R](t, cfg)
	require.NoError(t, p.Evaluate())
	assert.InDelta(t, 1.2, p.MortalityZ[0].Float(), 1e-4)
	assert.InDelta(t, 1.2, p.MortalityZ[1].Float(), 1e-4)
	assert.InDelta(t, 451.6, p.NumbersAtAge[p.At(1, 1)].Float(), 0.5)
	assert.InDelta(t, 582.3, p.Fleets[0].CatchNumbersAtAge[0].Float(), 0.1)
}

func TestConservationWithoutMortalityOrRecruitment(t *testing.T) {
	nYears := 4
	ages := []float64{0, 1, 2, 3, 4}
	p := build[R](t, testConfig{
		nYears:  nYears,
		ages:    ages,
		logM:    math.Inf(-1),
		initNAA: []float64{10, 20, 30, 40, 50},
		fleets:  []fleetConfig{{name: "f1", logF: repeat(math.Inf(-1), nYears), ip: 2, slope: 1}},
		logR:    repeat(math.Inf(-1), nYears),
	})
	require.NoError(t, p.Evaluate())

	nAges := len(ages)
	last := nAges - 1
	for y := 0; y < nYears; y++ {
		for a := 0; a < last-1; a++ {
			require.Equal(t, p.NumbersAtAge[p.At(y, a)], p.NumbersAtAge[p.At(y+1, a+1)], "y=%d a=%d", y, a)
		}
		want := p.NumbersAtAge[p.At(y, last)] + p.NumbersAtAge[p.At(y, last-1)]
		require.Equal(t, want, p.NumbersAtAge[p.At(y+1, last)], "plus-group y=%d", y)
		require.Equal(t, R(0), p.NumbersAtAge[p.At(y+1, 0)])
	}
	assert.InDelta(t, 150.0, numeric.Sum(p.NumbersAtAge[:nAges]).Float(), 1e-9)
	assert.InDelta(t, 150.0, numeric.Sum(p.NumbersAtAge[nYears*nAges:]).Float(), 1e-9)
	assert.Equal(t, 0.0, numeric.Sum(p.Fleets[0].CatchNumbersAtAge).Float())
}

func randomConfig(rng *rand.Rand) testConfig {
	nYears := 2 + rng.Intn(6)
	nAges := 2 + rng.Intn(8)
	ages := make([]float64, nAges)
	initNAA := make([]float64, nAges)
	weights := make([]float64, nAges)
	for a := range ages {
		ages[a] = float64(a)
		initNAA[a] = 1 + rng.Float64()*1e4
		weights[a] = 0.01 + rng.Float64()*3
	}
	var fleets []fleetConfig
	for f := 0; f < 1+rng.Intn(3); f++ {
		logF := make([]float64, nYears)
		for y := range logF {
			logF[y] = -4 + rng.Float64()*5
		}
		fleets = append(fleets, fleetConfig{
			name:     string(rune('a' + f)),
			logF:     logF,
			ip:       rng.Float64() * float64(nAges),
			slope:    0.1 + rng.Float64()*5,
			isSurvey: f > 0 && rng.Intn(2) == 0,
		})
	}
	logDevs := make([]float64, nYears)
	for y := range logDevs {
		logDevs[y] = rng.NormFloat64()
	}
	return testConfig{
		nYears:    nYears,
		ages:      ages,
		logM:      math.Log(0.05 + rng.Float64()),
		initNAA:   initNAA,
		weights:   weights,
		fleets:    fleets,
		logDevs:   logDevs,
		steepness: 0.21 + rng.Float64()*0.78,
	}
}

func TestNonNegativityAndCatchBound(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		cfg := randomConfig(rng)
		p := build[R](t, cfg)
		require.NoError(t, p.Evaluate())

		for i, v := range numeric.Floats(p.NumbersAtAge) {
			require.GreaterOrEqual(t, v, 0.0, "trial %d numbers_at_age[%d]", trial, i)
		}
		for y := 0; y <= p.NYears; y++ {
			require.GreaterOrEqual(t, p.Biomass[y].Float(), 0.0)
			require.GreaterOrEqual(t, p.SpawningBiomass[y].Float(), 0.0)
		}
		for y := 0; y < p.NYears; y++ {
			for a := 0; a < p.NAges; a++ {
				i := p.At(y, a)
				removed := 0.0
				for _, f := range p.Fleets {
					c := f.CatchNumbersAtAge[i].Float()
					require.GreaterOrEqual(t, c, 0.0)
					require.GreaterOrEqual(t, f.CatchWeightAtAge[i].Float(), 0.0)
					require.LessOrEqual(t, c, p.NumbersAtAge[i].Float())
					removed += c
				}
				require.LessOrEqual(t, removed, p.NumbersAtAge[i].Float()*(1+1e-12), "trial %d y=%d a=%d", trial, y, a)
			}
		}
	}
}

func TestEvaluateIsDeterministicAndIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := randomConfig(rng)
	p := build[R](t, cfg)

	require.NoError(t, p.Evaluate())
	first := p.Snapshot()
	require.NoError(t, p.Evaluate())
	assert.Equal(t, first, p.Snapshot())

	// a different parameter vector in between leaves no trace
	saved := p.Fleets[0].LogFMort[0]
	p.Fleets[0].LogFMort[0] = saved.Add(1)
	require.NoError(t, p.Evaluate())
	assert.NotEqual(t, first.Fleets[0].ExpectedCatch, p.Snapshot().Fleets[0].ExpectedCatch)
	p.Fleets[0].LogFMort[0] = saved
	require.NoError(t, p.Evaluate())
	assert.Equal(t, first, p.Snapshot())

	// a freshly built graph agrees bit for bit
	q := build[R](t, cfg)
	require.NoError(t, q.Evaluate())
	assert.Equal(t, first, q.Snapshot())
}

type recordingRecruitment struct {
	spawners []R
}

func (r *recordingRecruitment) EvaluateMean(s, _ R) R {
	r.spawners = append(r.spawners, s)
	return 100
}
func (r *recordingRecruitment) EvaluateProcess(_ int, mean R) R { return mean.Log() }
func (r *recordingRecruitment) Prepare()                        { r.spawners = r.spawners[:0] }
func (r *recordingRecruitment) CheckPositions(int) error        { return nil }

func TestRecruitmentUsesSpawningOutputOfPreviousYear(t *testing.T) {
	require.Equal(t, 1, SpawnerRecruitLag)

	p := build[R](t, testConfig{
		nYears:  3,
		ages:    []float64{0, 1, 2},
		logM:    math.Log(0.3),
		initNAA: []float64{100, 80, 60},
		fleets:  []fleetConfig{{name: "f1", logF: repeat(-1, 3), ip: 1, slope: 2}},
	})
	rec := &recordingRecruitment{}
	p.Recruitment = rec
	require.NoError(t, p.Evaluate())

	// the first NYears calls belong to the fished projection
	require.GreaterOrEqual(t, len(rec.spawners), 3)
	for y := 0; y < 3; y++ {
		assert.Equal(t, p.SpawningBiomass[y], rec.spawners[y], "year %d", y)
		assert.InDelta(t, 100.0, p.NumbersAtAge[p.At(y+1, 0)].Float(), 1e-9)
		assert.Equal(t, R(100), p.ExpectedRecruitment[y+1])
	}
	assert.Equal(t, p.NumbersAtAge[0], p.ExpectedRecruitment[0])
}

func TestPhi0(t *testing.T) {
	p := build[R](t, testConfig{
		nYears:  1,
		ages:    []float64{0, 1, 2},
		logM:    math.Log(0.5),
		initNAA: []float64{1, 1, 1},
		weights: []float64{1, 2, 3},
		fleets:  []fleetConfig{{name: "f1", logF: []float64{-2}, ip: 1, slope: 1}},
	})
	p.Maturity = functional.NewLogistic[R](-100, 1) // fully mature
	require.NoError(t, p.Evaluate())

	s := math.Exp(-0.5)
	want := 1*1 + s*2 + s*s/(1-s)*3
	assert.InDelta(t, want, p.Phi0.Float(), 1e-9)
}

func TestUnfishedTrajectoryDominatesFished(t *testing.T) {
	nYears := 6
	p := build[R](t, testConfig{
		nYears:  nYears,
		ages:    []float64{0, 1, 2, 3},
		logM:    math.Log(0.2),
		initNAA: []float64{1000, 700, 500, 900},
		weights: []float64{0.1, 0.5, 1, 1.5},
		fleets:  []fleetConfig{{name: "f1", logF: repeat(math.Log(0.4), nYears), ip: 1.5, slope: 3}},
		logR:    repeat(math.Log(800), nYears),
	})
	require.NoError(t, p.Evaluate())

	assert.Equal(t, p.NumbersAtAge[:4], p.UnfishedNumbersAtAge[:4])
	for y := 1; y <= nYears; y++ {
		assert.Greater(t, p.UnfishedBiomass[y].Float(), p.Biomass[y].Float(), "year %d", y)
		assert.Greater(t, p.UnfishedSpawningBiomass[y].Float(), p.SpawningBiomass[y].Float(), "year %d", y)
	}
}

func TestSurveyFleetAddsNoMortality(t *testing.T) {
	cfg := testConfig{
		nYears:  2,
		ages:    []float64{0, 1, 2},
		logM:    math.Log(0.2),
		initNAA: []float64{100, 50, 25},
		fleets: []fleetConfig{
			{name: "fishery", logF: []float64{-1, -1}, ip: 1, slope: 2},
		},
	}
	base := build[R](t, cfg)
	require.NoError(t, base.Evaluate())

	cfg.fleets = append(cfg.fleets, fleetConfig{name: "survey", ip: 0.5, slope: 4, isSurvey: true})
	withSurvey := build[R](t, cfg)
	require.NoError(t, withSurvey.Evaluate())

	assert.Equal(t, base.NumbersAtAge, withSurvey.NumbersAtAge)
	survey := withSurvey.Fleets[1]
	assert.Equal(t, 0.0, numeric.Sum(survey.CatchNumbersAtAge).Float())
	assert.Greater(t, survey.ExpectedIndex[0].Float(), 0.0)
	assert.InDelta(t, 1, numeric.Sum(survey.ProportionIndexNumbersAtAge[:3]).Float(), 1e-12)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	p := &Population[R]{NYears: 2, NAges: 3, Ages: []float64{0, 1}, LogM: make([]R, 5)}
	err := p.Evaluate()
	require.ErrorIs(t, err, ErrDimensionMismatch)
	require.ErrorIs(t, err, ErrMissingComponent)
	for _, part := range []string{"ages", "log_m", "log_init_naa", "recruitment", "maturity", "growth", "fleets"} {
		assert.Contains(t, err.Error(), part)
	}
	assert.Nil(t, p.NumbersAtAge)
}

func TestValidateRejectsShortParameterVectors(t *testing.T) {
	p := build[R](t, testConfig{
		nYears:  3,
		ages:    []float64{0, 1},
		logM:    0,
		initNAA: []float64{1, 1},
		fleets:  []fleetConfig{{name: "f1", logF: []float64{0, 0}, ip: 0, slope: 1}},
		logDevs: []float64{0},
	})
	err := p.Validate()
	require.ErrorIs(t, err, fleet.ErrDimensionMismatch)
	require.ErrorIs(t, err, recruitment.ErrPositionOutOfRange)
}

func TestDualDerivativeMatchesFiniteDifference(t *testing.T) {
	cfg := testConfig{
		nYears:  5,
		ages:    []float64{0, 1, 2, 3},
		logM:    math.Log(0.25),
		initNAA: []float64{900, 600, 400, 300},
		weights: []float64{0.2, 0.6, 1.1, 1.6},
		fleets:  []fleetConfig{{name: "f1", logF: repeat(math.Log(0.3), 5), ip: 1.5, slope: 2}},
		logDevs: []float64{0.1, -0.2, 0.3, 0, -0.1},
	}
	terminalSB := func(logF2 float64) float64 {
		p := build[R](t, cfg)
		p.Fleets[0].LogFMort[2] = R(logF2)
		require.NoError(t, p.Evaluate())
		v, err := p.Quantity("spawning_biomass", -1)
		require.NoError(t, err)
		return v.Float()
	}

	d := build[numeric.Dual](t, cfg)
	d.Fleets[0].LogFMort[2] = numeric.Variable(math.Log(0.3))
	require.NoError(t, d.Evaluate())
	got, err := d.Quantity("spawning_biomass", -1)
	require.NoError(t, err)

	h := 1e-5
	x := math.Log(0.3)
	want := (terminalSB(x+h) - terminalSB(x-h)) / (2 * h)
	assert.InDelta(t, terminalSB(x), got.Val, 1e-9)
	assert.InEpsilon(t, want, got.Der, 1e-5)
	assert.Less(t, got.Der, 0.0)
}

func TestQuantityLookup(t *testing.T) {
	p := build[R](t, testConfig{
		nYears:  2,
		ages:    []float64{0, 1},
		logM:    math.Log(0.2),
		initNAA: []float64{10, 10},
		fleets:  []fleetConfig{{name: "trawl", logF: []float64{0, 0}, ip: 0, slope: 1}},
	})
	require.NoError(t, p.Evaluate())

	v, err := p.Quantity("trawl/expected_catch", 1)
	require.NoError(t, err)
	assert.Equal(t, p.Fleets[0].ExpectedCatch[1], v)

	_, err = p.Quantity("nope", 0)
	require.ErrorIs(t, err, ErrUnknownQuantity)
	_, err = p.Quantity("biomass", 3)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, p.QuantityNames(), "trawl/expected_index")
}

func TestKnifeEdgeCurvesKeepDerivativesFinite(t *testing.T) {
	nYears := 4
	ages := make([]float64, 13)
	initNAA := make([]float64, 13)
	for a := range ages {
		ages[a] = float64(a)
		initNAA[a] = 1000 * math.Exp(-0.3*float64(a))
	}
	p := build[numeric.Dual](t, testConfig{
		nYears:  nYears,
		ages:    ages,
		logM:    math.Log(0.2),
		initNAA: initNAA,
		fleets:  []fleetConfig{{name: "gillnet", logF: repeat(math.Log(0.3), nYears), ip: 5, slope: 150}},
		logDevs: repeat(0, nYears),
	})
	p.Maturity = functional.NewLogistic(numeric.Dual{Val: 8}, numeric.Dual{Val: 100})
	p.LogInitNAA[0] = numeric.Variable(p.LogInitNAA[0].Val)
	require.NoError(t, p.Evaluate())

	assert.Equal(t, 0.0, p.MaturityAtAge[0].Val)
	for name, values := range p.quantities() {
		for i, v := range values {
			require.False(t, math.IsNaN(v.Der) || math.IsInf(v.Der, 0), "%s[%d] = %+v", name, i, v)
		}
	}
	// d N[1,1] / d log N[0,0] = N[1,1]
	n11 := p.NumbersAtAge[p.At(1, 1)]
	assert.InDelta(t, n11.Val, n11.Der, 1e-9)
}

func TestEvaluateRevalidatesAfterReconfiguration(t *testing.T) {
	p := build[R](t, testConfig{
		nYears:  2,
		ages:    []float64{0, 1, 2},
		logM:    math.Log(0.2),
		initNAA: []float64{100, 80, 60},
		fleets:  []fleetConfig{{name: "trawl", logF: []float64{-1, -1}, ip: 1, slope: 2}},
	})
	require.NoError(t, p.Evaluate())

	full := p.LogM
	p.LogM = full[:4]
	require.ErrorIs(t, p.Evaluate(), ErrDimensionMismatch)
	p.LogM = full

	p.Fleets = append(p.Fleets, &fleet.Fleet[R]{
		Name:        "survey",
		IsSurvey:    true,
		Selectivity: functional.NewLogistic[R](1, 2),
	})
	require.NoError(t, p.Evaluate())
	assert.Len(t, p.Fleets[1].ExpectedIndex, 2)
	assert.Greater(t, p.Fleets[1].ExpectedIndex[1].Float(), 0.0)

	p.Fleets[0].LogFMort = p.Fleets[0].LogFMort[:1]
	require.ErrorIs(t, p.Evaluate(), fleet.ErrDimensionMismatch)
}
