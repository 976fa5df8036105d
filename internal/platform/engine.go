// Package platform runs scenario evaluations end to end: it builds the
// population graph, evaluates it, persists the run, writes its artifacts and
// records metrics.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stockproj/internal/logging"
	"stockproj/internal/metrics"
	"stockproj/internal/model"
	"stockproj/internal/numeric"
	"stockproj/internal/registry"
	"stockproj/internal/report"
	"stockproj/internal/scenario"
	"stockproj/internal/storage"
)

var (
	ErrNotStarted      = errors.New("engine is not started")
	ErrScenarioMissing = errors.New("scenario not found")
)

type Config struct {
	Store   storage.Store
	Metrics *metrics.Collector
	// ArtifactsDir receives one directory per run plus the run index. Empty
	// disables artifact output.
	ArtifactsDir string
	Logger       *slog.Logger
	Now          func() time.Time
}

// Engine owns the store and the artifact directory for a sequence of runs.
// Each evaluation builds its own graph, so concurrent calls share nothing but
// the store.
type Engine struct {
	store        storage.Store
	metrics      *metrics.Collector
	artifactsDir string
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.RWMutex
	started bool
	// index appends are read-modify-write on one file
	indexMu sync.Mutex
}

func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:        cfg.Store,
		metrics:      cfg.Metrics,
		artifactsDir: cfg.ArtifactsDir,
		logger:       logging.ForComponent(logger, "platform"),
		now:          now,
	}
}

func (e *Engine) Init(ctx context.Context) error {
	if e.store == nil {
		return fmt.Errorf("store is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	if err := e.store.Init(ctx); err != nil {
		return err
	}
	e.started = true
	return nil
}

func (e *Engine) Stop() {
	e.mu.Lock()
	e.started = false
	e.mu.Unlock()
}

func (e *Engine) Started() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started
}

func (e *Engine) Store() storage.Store { return e.store }

func (e *Engine) ArtifactsDir() string { return e.artifactsDir }

func (e *Engine) ensureStarted() error {
	if !e.Started() {
		return ErrNotStarted
	}
	return nil
}

// SaveScenario validates s, stamps its record version and stores it.
func (e *Engine) SaveScenario(ctx context.Context, s model.Scenario) (model.Scenario, error) {
	if err := e.ensureStarted(); err != nil {
		return model.Scenario{}, err
	}
	if err := scenario.Validate(s); err != nil {
		return model.Scenario{}, err
	}
	s.VersionedRecord = storage.Stamp()
	if err := e.store.SaveScenario(ctx, s); err != nil {
		return model.Scenario{}, err
	}
	return s, nil
}

// ResolveScenario returns req's inline scenario, or loads it by id.
func (e *Engine) ResolveScenario(ctx context.Context, inline *model.Scenario, id string) (model.Scenario, error) {
	if inline != nil {
		return *inline, nil
	}
	if id == "" {
		return model.Scenario{}, fmt.Errorf("scenario or scenario id is required")
	}
	s, ok, err := e.store.GetScenario(ctx, id)
	if err != nil {
		return model.Scenario{}, err
	}
	if !ok {
		return model.Scenario{}, fmt.Errorf("%s: %w", id, ErrScenarioMissing)
	}
	return s, nil
}

type EvaluateRequest struct {
	RunID    string
	Scenario model.Scenario
}

// Evaluate projects the scenario, persists the run record and, when an
// artifacts directory is configured, writes its artifacts and index entry.
func (e *Engine) Evaluate(ctx context.Context, req EvaluateRequest) (model.RunRecord, error) {
	if err := e.ensureStarted(); err != nil {
		return model.RunRecord{}, err
	}
	if err := report.CheckRunID(req.RunID); err != nil {
		return model.RunRecord{}, err
	}
	s := req.Scenario
	logger := e.logger.With("run_id", req.RunID, "scenario", s.ID)

	start := e.now()
	out, err := e.project(ctx, s)
	elapsed := e.now().Sub(start)
	if err != nil {
		e.metrics.ObserveEvaluation(s.ID, elapsed, 0, 0, err)
		logger.Error("evaluation failed", "error", err)
		return model.RunRecord{}, err
	}

	run := NewRunRecord(req.RunID, s.ID, start, elapsed, out)
	e.metrics.ObserveEvaluation(s.ID, elapsed, run.TerminalSpawningBiomass, run.Depletion, nil)

	if err := e.store.SaveRun(ctx, run); err != nil {
		return model.RunRecord{}, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	if e.artifactsDir != "" {
		if _, err := report.WriteRunArtifacts(e.artifactsDir, s, run); err != nil {
			return model.RunRecord{}, fmt.Errorf("write artifacts for %s: %w", run.ID, err)
		}
		e.indexMu.Lock()
		err := report.AppendRunIndex(e.artifactsDir, report.IndexEntry(run))
		e.indexMu.Unlock()
		if err != nil {
			return model.RunRecord{}, fmt.Errorf("index run %s: %w", run.ID, err)
		}
	}

	logger.Info("evaluation complete",
		"duration", elapsed,
		"terminal_spawning_biomass", run.TerminalSpawningBiomass,
		"depletion", run.Depletion,
		"total_catch", run.TotalCatch,
	)
	return run, nil
}

func (e *Engine) project(ctx context.Context, s model.Scenario) (model.PopulationOutput, error) {
	if err := scenario.Validate(s); err != nil {
		return model.PopulationOutput{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.PopulationOutput{}, err
	}
	pop, err := registry.Build(s, registry.Constant[numeric.Real](), e.logger)
	if err != nil {
		return model.PopulationOutput{}, err
	}
	if err := pop.Evaluate(); err != nil {
		return model.PopulationOutput{}, err
	}
	return pop.Snapshot(), nil
}

// NewRunRecord summarizes out. Depletion is terminal spawning biomass over
// its unfished counterpart; total catch sums the non-survey fleets.
func NewRunRecord(runID, scenarioID string, createdAt time.Time, elapsed time.Duration, out model.PopulationOutput) model.RunRecord {
	run := model.RunRecord{
		VersionedRecord: storage.Stamp(),
		ID:              runID,
		ScenarioID:      scenarioID,
		CreatedAt:       createdAt.UTC(),
		DurationMillis:  elapsed.Milliseconds(),
		Output:          out,
	}
	if n := len(out.SpawningBiomass); n > 0 {
		run.TerminalSpawningBiomass = out.SpawningBiomass[n-1]
	}
	if n := len(out.Biomass); n > 0 {
		run.TerminalBiomass = out.Biomass[n-1]
	}
	if n := len(out.UnfishedSpawningBiomass); n > 0 && out.UnfishedSpawningBiomass[n-1] > 0 {
		run.Depletion = run.TerminalSpawningBiomass / out.UnfishedSpawningBiomass[n-1]
	}
	for _, f := range out.Fleets {
		if f.IsSurvey {
			continue
		}
		for _, c := range f.ExpectedCatch {
			run.TotalCatch += c
		}
	}
	return run
}
