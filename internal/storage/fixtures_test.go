package storage

import (
	"time"

	"stockproj/internal/model"
)

func sampleScenario(id string) model.Scenario {
	return model.Scenario{
		VersionedRecord: Stamp(),
		ID:              id,
		NYears:          2,
		Ages:            []float64{0, 1, 2},
		LogM:            []float64{-1.6},
		LogInitNAA:      []float64{7, 6.5, 6},
		Growth:          model.GrowthSpec{Form: "ewaa", Weights: []float64{0.1, 0.5, 1.2}},
		Maturity:        model.CurveSpec{Form: "logistic", InflectionPoint: []float64{1}, Slope: []float64{2}},
		Recruitment:     model.RecruitmentSpec{Form: "beverton_holt", LogRZero: 7, Steepness: 0.75, LogDevs: []float64{0.1, -0.1}},
		Fleets: []model.FleetSpec{{
			Name:        "trawl",
			LogFMort:    []float64{-1, -1.2},
			Selectivity: model.CurveSpec{Form: "logistic", InflectionPoint: []float64{1}, Slope: []float64{3}},
		}},
	}
}

func sampleRun(id, scenarioID string, createdAt time.Time) model.RunRecord {
	return model.RunRecord{
		VersionedRecord:         Stamp(),
		ID:                      id,
		ScenarioID:              scenarioID,
		CreatedAt:               createdAt,
		TerminalSpawningBiomass: 420.5,
		Depletion:               0.42,
		Output: model.PopulationOutput{
			Name:            scenarioID,
			NYears:          2,
			NAges:           3,
			SpawningBiomass: []float64{500, 460, 420.5},
			Fleets:          []model.FleetOutput{{Name: "trawl", ExpectedCatch: []float64{30, 28}}},
		},
	}
}
