package storage

import (
	"context"

	"stockproj/internal/model"
)

// Store persists scenarios, evaluation runs and sensitivity results.
// Getters report a missing record with ok == false and a nil error.
type Store interface {
	Init(ctx context.Context) error
	SaveScenario(ctx context.Context, scenario model.Scenario) error
	GetScenario(ctx context.Context, id string) (model.Scenario, bool, error)
	ListScenarios(ctx context.Context) ([]string, error)
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first, optionally restricted to one scenario.
	ListRuns(ctx context.Context, scenarioID string) ([]model.RunRecord, error)
	SaveSensitivity(ctx context.Context, runID string, records []model.SensitivityRecord) error
	GetSensitivity(ctx context.Context, runID string) ([]model.SensitivityRecord, bool, error)
}
