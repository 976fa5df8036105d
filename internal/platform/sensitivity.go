package platform

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"stockproj/internal/model"
	"stockproj/internal/numeric"
	"stockproj/internal/population"
	"stockproj/internal/registry"
	"stockproj/internal/report"
	"stockproj/internal/scenario"
	"stockproj/internal/storage"
)

const (
	DefaultOutput = "spawning_biomass"
	// DefaultOutputIndex selects the terminal value.
	DefaultOutputIndex = -1
)

type SensitivityRequest struct {
	RunID    string
	Scenario model.Scenario
	// Output names a derived quantity accepted by Population.Quantity.
	Output      string
	OutputIndex int
	// Workers bounds the number of graphs evaluated at once.
	Workers int
	// FDStep enables a central finite-difference check with relative step
	// FDStep when positive.
	FDStep float64
	// Parameters restricts the run to the named parameters. Empty means all.
	Parameters []string
}

// Sensitivity differentiates one output with respect to every scenario
// parameter. Each parameter gets its own dual-number graph; graphs run
// concurrently. Records come back in parameter order and are persisted under
// RunID.
func (e *Engine) Sensitivity(ctx context.Context, req SensitivityRequest) ([]model.SensitivityRecord, error) {
	if err := e.ensureStarted(); err != nil {
		return nil, err
	}
	if err := report.CheckRunID(req.RunID); err != nil {
		return nil, err
	}
	if req.Output == "" {
		req.Output = DefaultOutput
		req.OutputIndex = DefaultOutputIndex
	}
	if req.Workers <= 0 {
		req.Workers = runtime.GOMAXPROCS(0)
	}
	s := req.Scenario
	if err := scenario.Validate(s); err != nil {
		return nil, err
	}

	params, err := registry.Parameters(s)
	if err != nil {
		return nil, err
	}
	params, err = selectParameters(params, req.Parameters)
	if err != nil {
		return nil, err
	}

	output := fmt.Sprintf("%s[%d]", req.Output, req.OutputIndex)
	records := make([]model.SensitivityRecord, len(params))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(req.Workers)
	for i, param := range params {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := e.differentiate(s, param, req)
			if err != nil {
				return fmt.Errorf("parameter %s: %w", param.ID, err)
			}
			rec.Output = output
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.metrics.ObserveSensitivity(s.ID, len(params))
	if err := e.store.SaveSensitivity(ctx, req.RunID, records); err != nil {
		return nil, fmt.Errorf("save sensitivity %s: %w", req.RunID, err)
	}
	if e.artifactsDir != "" {
		if err := report.WriteSensitivity(e.artifactsDir, req.RunID, records); err != nil {
			return nil, err
		}
	}
	e.logger.Info("sensitivity complete", "run_id", req.RunID, "scenario", s.ID, "parameters", len(params), "output", output)
	return records, nil
}

func (e *Engine) differentiate(s model.Scenario, param registry.Parameter, req SensitivityRequest) (model.SensitivityRecord, error) {
	pop, err := registry.Build(s, registry.Seeded(param.ID), e.logger)
	if err != nil {
		return model.SensitivityRecord{}, err
	}
	value, err := evaluateQuantity(pop, req.Output, req.OutputIndex)
	if err != nil {
		return model.SensitivityRecord{}, err
	}

	rec := model.SensitivityRecord{
		VersionedRecord: storage.Stamp(),
		Parameter:       param.ID.String(),
		Value:           param.Value,
		Derivative:      value.Der,
	}
	if req.FDStep > 0 {
		fd, err := e.centralDifference(s, param, req)
		if err != nil {
			return model.SensitivityRecord{}, err
		}
		rec.FiniteDifference = fd
		rec.RelativeError = relativeError(rec.Derivative, fd)
	}
	return rec, nil
}

func (e *Engine) centralDifference(s model.Scenario, param registry.Parameter, req SensitivityRequest) (float64, error) {
	h := req.FDStep * math.Max(1, math.Abs(param.Value))
	at := func(delta float64) (float64, error) {
		lift := func(id registry.ParamID, v float64) numeric.Real {
			if id == param.ID {
				return numeric.Real(v + delta)
			}
			return numeric.Real(v)
		}
		pop, err := registry.Build(s, registry.Lifter[numeric.Real](lift), e.logger)
		if err != nil {
			return 0, err
		}
		value, err := evaluateQuantity(pop, req.Output, req.OutputIndex)
		if err != nil {
			return 0, err
		}
		return value.Float(), nil
	}
	up, err := at(h)
	if err != nil {
		return 0, err
	}
	down, err := at(-h)
	if err != nil {
		return 0, err
	}
	return (up - down) / (2 * h), nil
}

func evaluateQuantity[T numeric.Number[T]](pop *population.Population[T], name string, index int) (T, error) {
	if err := pop.Evaluate(); err != nil {
		var zero T
		return zero, err
	}
	return pop.Quantity(name, index)
}

func relativeError(derivative, fd float64) float64 {
	scale := math.Max(math.Max(math.Abs(derivative), math.Abs(fd)), 1e-12)
	return math.Abs(derivative-fd) / scale
}

func selectParameters(all []registry.Parameter, names []string) ([]registry.Parameter, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]registry.Parameter, len(all))
	for _, p := range all {
		byName[p.ID.String()] = p
	}
	out := make([]registry.Parameter, 0, len(names))
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}
