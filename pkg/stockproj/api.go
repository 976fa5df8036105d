// Package stockproj is the library surface of the projection engine: save
// scenarios, evaluate them into persisted runs, list and export run
// artifacts, and compute parameter sensitivities.
package stockproj

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"stockproj/internal/logging"
	"stockproj/internal/metrics"
	"stockproj/internal/model"
	"stockproj/internal/platform"
	"stockproj/internal/report"
	"stockproj/internal/scenario"
	"stockproj/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "stockproj.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
	// Registry receives the engine metrics. Nil uses a private registry.
	Registry *prometheus.Registry
	// Workers bounds concurrent sensitivity graphs.
	Workers int
	// FDStep is the default finite-difference step for sensitivity checks.
	FDStep float64
}

type Client struct {
	store   storage.Store
	engine  *platform.Engine
	metrics *metrics.Collector

	artifactsDir string
	exportsDir   string
	workers      int
	fdStep       float64
}

type EvaluateRequest struct {
	RunID string
	// One of Scenario, ScenarioPath or ScenarioID selects the scenario, in
	// that order of precedence.
	Scenario     *model.Scenario
	ScenarioPath string
	ScenarioID   string
}

type RunSummary struct {
	RunID                   string
	ScenarioID              string
	ArtifactsDir            string
	CreatedAt               time.Time
	Duration                time.Duration
	TerminalSpawningBiomass float64
	TerminalBiomass         float64
	Depletion               float64
	TotalCatch              float64
}

type RunsRequest struct {
	Limit      int
	ScenarioID string
}

type RunItem struct {
	RunID                   string
	ScenarioID              string
	CreatedAtUTC            string
	NYears                  int
	NAges                   int
	NFleets                 int
	TerminalSpawningBiomass float64
	Depletion               float64
	TotalCatch              float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type SensitivityRequest struct {
	RunID        string
	Scenario     *model.Scenario
	ScenarioPath string
	ScenarioID   string
	Output       string
	OutputIndex  int
	Parameters   []string
	// CheckFD runs a central finite-difference check per parameter.
	CheckFD bool
}

type SensitivityResult struct {
	RunID   string
	Records []model.SensitivityRecord
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	col, err := metrics.New(opts.Registry)
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	return &Client{
		store:   store,
		metrics: col,
		engine: platform.NewEngine(platform.Config{
			Store:        store,
			Metrics:      col,
			ArtifactsDir: artifactsDir,
			Logger:       logger,
		}),
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
		workers:      opts.Workers,
		fdStep:       opts.FDStep,
	}, nil
}

func (c *Client) Close() error {
	c.engine.Stop()
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.engine.Init(ctx)
}

// Gatherer exposes the client's metrics.
func (c *Client) Gatherer() prometheus.Gatherer {
	return c.metrics.Gatherer()
}

// SaveScenario validates and stores s and returns its id.
func (c *Client) SaveScenario(ctx context.Context, s model.Scenario) (string, error) {
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	saved, err := c.engine.SaveScenario(ctx, s)
	if err != nil {
		return "", err
	}
	return saved.ID, nil
}

// Scenarios lists stored scenario ids.
func (c *Client) Scenarios(ctx context.Context) ([]string, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListScenarios(ctx)
}

func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	s, err := c.resolve(ctx, req.Scenario, req.ScenarioPath, req.ScenarioID)
	if err != nil {
		return RunSummary{}, err
	}
	runID := req.RunID
	if runID == "" {
		runID = newRunID()
	}

	run, err := c.engine.Evaluate(ctx, platform.EvaluateRequest{RunID: runID, Scenario: s})
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		RunID:                   run.ID,
		ScenarioID:              run.ScenarioID,
		ArtifactsDir:            filepath.Join(c.artifactsDir, run.ID),
		CreatedAt:               run.CreatedAt,
		Duration:                time.Duration(run.DurationMillis) * time.Millisecond,
		TerminalSpawningBiomass: run.TerminalSpawningBiomass,
		TerminalBiomass:         run.TerminalBiomass,
		Depletion:               run.Depletion,
		TotalCatch:              run.TotalCatch,
	}, nil
}

// Runs lists indexed runs newest first.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := report.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		if req.ScenarioID != "" && e.ScenarioID != req.ScenarioID {
			continue
		}
		out = append(out, RunItem{
			RunID:                   e.RunID,
			ScenarioID:              e.ScenarioID,
			CreatedAtUTC:            e.CreatedAtUTC,
			NYears:                  e.NYears,
			NAges:                   e.NAges,
			NFleets:                 e.NFleets,
			TerminalSpawningBiomass: e.TerminalSpawningBiomass,
			Depletion:               e.Depletion,
			TotalCatch:              e.TotalCatch,
		})
		if len(out) == req.Limit {
			break
		}
	}
	return out, nil
}

// Run returns a stored run, falling back to its artifacts when the store
// does not hold it.
func (c *Client) Run(ctx context.Context, runID string) (model.RunRecord, error) {
	if runID == "" {
		return model.RunRecord{}, errors.New("run id is required")
	}
	if err := c.Init(ctx); err != nil {
		return model.RunRecord{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if ok {
		return run, nil
	}
	run, ok, err = report.ReadRun(c.artifactsDir, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	return run, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := report.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := report.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Sensitivity differentiates one derived quantity (terminal spawning biomass
// by default) with respect to each scenario parameter.
func (c *Client) Sensitivity(ctx context.Context, req SensitivityRequest) (SensitivityResult, error) {
	if err := c.Init(ctx); err != nil {
		return SensitivityResult{}, err
	}
	s, err := c.resolve(ctx, req.Scenario, req.ScenarioPath, req.ScenarioID)
	if err != nil {
		return SensitivityResult{}, err
	}
	runID := req.RunID
	if runID == "" {
		runID = newRunID()
	}
	fdStep := 0.0
	if req.CheckFD {
		fdStep = c.fdStep
		if fdStep <= 0 {
			fdStep = 1e-5
		}
	}

	records, err := c.engine.Sensitivity(ctx, platform.SensitivityRequest{
		RunID:       runID,
		Scenario:    s,
		Output:      req.Output,
		OutputIndex: req.OutputIndex,
		Workers:     c.workers,
		FDStep:      fdStep,
		Parameters:  req.Parameters,
	})
	if err != nil {
		return SensitivityResult{}, err
	}
	return SensitivityResult{RunID: runID, Records: records}, nil
}

func (c *Client) resolve(ctx context.Context, inline *model.Scenario, path, id string) (model.Scenario, error) {
	if inline == nil && path != "" {
		s, err := scenario.Load(path)
		if err != nil {
			return model.Scenario{}, err
		}
		inline = &s
	}
	return c.engine.ResolveScenario(ctx, inline, id)
}

func newRunID() string {
	return uuid.NewString()
}
