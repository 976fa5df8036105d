package scenario

import (
	"math"

	"stockproj/internal/model"
)

// Example returns a small two-fleet scenario: a trawl fishery and a
// fishery-independent survey over ten years and eight ages.
func Example() model.Scenario {
	const nYears = 10
	ages := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	logFMort := make([]float64, nYears)
	logDevs := make([]float64, nYears)
	for y := range logFMort {
		logFMort[y] = math.Log(0.1 + 0.03*float64(y))
		logDevs[y] = 0.3 * math.Sin(float64(y))
	}
	logInit := make([]float64, len(ages))
	for a, age := range ages {
		logInit[a] = math.Log(1e6) - 0.2*(age-1)
	}

	return model.Scenario{
		ID:          "example",
		Description: "demersal stock with one fishery and one survey",
		NYears:      nYears,
		Ages:        ages,
		LogM:        []float64{math.Log(0.2)},
		LogInitNAA:  logInit,
		Growth: model.GrowthSpec{
			Form: "von_bertalanffy",
			LInf: model.Float(90),
			K:    model.Float(0.25),
			T0:   model.Float(-0.3),
			A:    model.Float(1e-5),
			B:    model.Float(3.0),
		},
		Maturity: model.CurveSpec{Form: "logistic", InflectionPoint: []float64{3}, Slope: []float64{1.8}},
		Recruitment: model.RecruitmentSpec{
			Form:      "beverton_holt",
			LogRZero:  math.Log(1e6),
			Steepness: 0.75,
			Process:   "log_devs",
			LogDevs:   logDevs,
			SumToZero: true,
		},
		Fleets: []model.FleetSpec{
			{
				Name:        "trawl",
				LogFMort:    logFMort,
				CatchUnits:  "weight",
				Selectivity: model.CurveSpec{Form: "logistic", InflectionPoint: []float64{2.5}, Slope: []float64{2}},
			},
			{
				Name:        "survey",
				IsSurvey:    true,
				LogQ:        []float64{math.Log(1e-4)},
				IndexUnits:  "numbers",
				Selectivity: model.CurveSpec{Form: "double_logistic", InflectionPoint: []float64{1.5}, Slope: []float64{3}, InflectionPointDesc: []float64{6}, SlopeDesc: []float64{1.5}},
			},
		},
	}
}
