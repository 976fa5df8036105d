package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"stockproj/internal/fleet"
	"stockproj/internal/functional"
	"stockproj/internal/growth"
	"stockproj/internal/model"
	"stockproj/internal/numeric"
	"stockproj/internal/population"
	"stockproj/internal/recruitment"
)

// ParamID names one estimable scalar of a scenario.
type ParamID struct {
	Component string
	Name      string
	Index     int
}

func (id ParamID) String() string {
	return id.Component + "/" + id.Name + "[" + strconv.Itoa(id.Index) + "]"
}

// Lifter converts a named scenario value into the numeric type of the graph.
// A lifter that returns a seeded Dual for one ParamID yields derivatives with
// respect to that parameter.
type Lifter[T numeric.Number[T]] func(id ParamID, v float64) T

// Constant lifts every parameter as a constant.
func Constant[T numeric.Number[T]]() Lifter[T] {
	return func(_ ParamID, v float64) T { return numeric.Const[T](v) }
}

// Seeded lifts target as a unit-derivative variable and everything else as a
// constant.
func Seeded(target ParamID) Lifter[numeric.Dual] {
	return func(id ParamID, v float64) numeric.Dual {
		if id == target {
			return numeric.Variable(v)
		}
		return numeric.Dual{Val: v}
	}
}

// Parameter is a named scalar and its scenario value.
type Parameter struct {
	ID    ParamID
	Value float64
}

// Parameters lists every estimable scalar of s in construction order. Each
// broadcast value is listed once.
func Parameters(s model.Scenario) ([]Parameter, error) {
	var params []Parameter
	seen := make(map[ParamID]bool)
	record := func(id ParamID, v float64) numeric.Real {
		if !seen[id] {
			seen[id] = true
			params = append(params, Parameter{ID: id, Value: v})
		}
		return numeric.Real(v)
	}
	if _, err := Build(s, Lifter[numeric.Real](record), slog.New(slog.DiscardHandler)); err != nil {
		return nil, err
	}
	return params, nil
}

// Build constructs a linked, initialized population for s. Configuration
// errors are reported together.
func Build[T numeric.Number[T]](s model.Scenario, lift Lifter[T], logger *slog.Logger) (*population.Population[T], error) {
	r := New[T](logger)
	b := builder[T]{lift: lift, logger: logger}

	nAges := len(s.Ages)
	p := &population.Population[T]{
		Name:       s.ID,
		NYears:     s.NYears,
		NAges:      nAges,
		Ages:       append([]float64(nil), s.Ages...),
		LogInitNAA: b.vector("population", "log_init_naa", s.LogInitNAA),
		Logger:     logger,
	}
	if len(s.LogM) == 1 {
		p.LogM = make([]T, s.NYears*nAges)
		for i := range p.LogM {
			p.LogM[i] = lift(ParamID{Component: "population", Name: "log_m"}, s.LogM[0])
		}
	} else {
		p.LogM = b.vector("population", "log_m", s.LogM)
	}

	var links PopulationLinks
	if mat, err := b.curve("maturity", s.Maturity); err != nil {
		b.fail(err)
	} else {
		links.Maturity = r.AddCurve(mat)
	}
	if g, err := b.growth(s.Growth, s.Ages); err != nil {
		b.fail(err)
	} else {
		links.Growth = r.AddGrowth(g)
	}
	if rec, err := b.recruitment(s.Recruitment); err != nil {
		b.fail(err)
	} else {
		links.Recruitment = r.AddRecruitment(rec)
	}

	for _, spec := range s.Fleets {
		f := &fleet.Fleet[T]{
			Name:        spec.Name,
			IsSurvey:    spec.IsSurvey,
			LogFMort:    b.vector(spec.Name, "log_fmort", spec.LogFMort),
			LogQ:        b.vector(spec.Name, "log_q", spec.LogQ),
			CatchUnits:  fleet.Units(spec.CatchUnits),
			IndexUnits:  fleet.Units(spec.IndexUnits),
			NLengths:    spec.NLengths,
			AgeToLength: append([]float64(nil), spec.AgeToLength...),
		}
		sel, err := b.curve(spec.Name+".selectivity", spec.Selectivity)
		if err != nil {
			b.fail(err)
			continue
		}
		links.Fleets = append(links.Fleets, r.AddFleet(f, r.AddCurve(sel)))
	}
	if err := b.err(); err != nil {
		return nil, err
	}

	r.AddPopulation(p, links)
	if err := r.Link(); err != nil {
		return nil, err
	}
	if err := p.Initialize(); err != nil {
		return nil, err
	}
	return p, nil
}

type builder[T numeric.Number[T]] struct {
	lift   Lifter[T]
	logger *slog.Logger
	errs   []error
}

func (b *builder[T]) fail(err error) {
	b.errs = append(b.errs, err)
}

func (b *builder[T]) err() error {
	return errors.Join(b.errs...)
}

func (b *builder[T]) vector(component, name string, values []float64) []T {
	if len(values) == 0 {
		return nil
	}
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = b.lift(ParamID{Component: component, Name: name, Index: i}, v)
	}
	return out
}

func (b *builder[T]) scalar(component, name string, v float64) T {
	return b.lift(ParamID{Component: component, Name: name}, v)
}

func (b *builder[T]) curve(component string, spec model.CurveSpec) (functional.Curve[T], error) {
	switch NormalizeForm(spec.Form) {
	case functional.FormLogistic:
		return &functional.Logistic[T]{
			InflectionPoint: b.vector(component, "inflection_point", spec.InflectionPoint),
			Slope:           b.vector(component, "slope", spec.Slope),
		}, nil
	case functional.FormDoubleLogistic:
		return &functional.DoubleLogistic[T]{
			InflectionPointAsc:  b.vector(component, "inflection_point", spec.InflectionPoint),
			SlopeAsc:            b.vector(component, "slope", spec.Slope),
			InflectionPointDesc: b.vector(component, "inflection_point_desc", spec.InflectionPointDesc),
			SlopeDesc:           b.vector(component, "slope_desc", spec.SlopeDesc),
		}, nil
	default:
		return nil, fmt.Errorf("%s form %q: %w", component, spec.Form, ErrUnknownForm)
	}
}

func (b *builder[T]) growth(spec model.GrowthSpec, ages []float64) (growth.Growth[T], error) {
	switch NormalizeForm(spec.Form) {
	case growth.FormEWAA:
		g, err := growth.NewEWAA[T](ages, spec.Weights)
		if err != nil {
			return nil, fmt.Errorf("growth: %w", err)
		}
		return g, nil
	case growth.FormVonBertalanffy:
		fields := spec.VonBertalanffyFields()
		values := make([]T, len(fields))
		for i, f := range fields {
			if f.Value == nil {
				return nil, fmt.Errorf("growth von_bertalanffy %s: %w", f.Name, growth.ErrGrowthNotConfigured)
			}
			values[i] = b.scalar("growth", f.Name, *f.Value)
		}
		return growth.NewVonBertalanffy(values[0], values[1], values[2], values[3], values[4]), nil
	default:
		return nil, fmt.Errorf("growth form %q: %w", spec.Form, ErrUnknownForm)
	}
}

func (b *builder[T]) recruitment(spec model.RecruitmentSpec) (population.Recruitment[T], error) {
	var relationship recruitment.StockRecruit[T]
	switch NormalizeForm(spec.Form) {
	case recruitment.FormBevertonHolt:
		bh := &recruitment.BevertonHolt[T]{Logger: b.logger}
		if err := bh.SetSteepness(spec.Steepness); err != nil {
			return nil, fmt.Errorf("recruitment: %w", err)
		}
		bh.LogRZero = b.scalar("recruitment", "log_rzero", spec.LogRZero)
		bh.LogitSteep = b.scalar("recruitment", "logit_steep", bh.LogitSteep.Float())
		relationship = bh
	case recruitment.FormRicker:
		rk := &recruitment.Ricker[T]{}
		if err := rk.SetSteepness(spec.Steepness); err != nil {
			return nil, fmt.Errorf("recruitment: %w", err)
		}
		rk.LogRZero = b.scalar("recruitment", "log_rzero", spec.LogRZero)
		rk.LogSteepExcess = b.scalar("recruitment", "log_steep_excess", math.Log(spec.Steepness-recruitment.SteepnessLower))
		relationship = rk
	default:
		return nil, fmt.Errorf("recruitment form %q: %w", spec.Form, ErrUnknownForm)
	}

	var process recruitment.Process[T]
	switch NormalizeForm(spec.Process) {
	case "", recruitment.ProcessLogDevs:
		ld := &recruitment.LogDevProcess[T]{
			LogDevs:   b.vector("recruitment", "log_devs", spec.LogDevs),
			SumToZero: spec.SumToZero,
		}
		// sigma only enters through the bias correction
		if spec.BiasCorrect {
			ld.LogSigma = b.scalar("recruitment", "log_sigma", spec.LogSigma)
			ld.BiasCorrect = true
		}
		process = ld
	case recruitment.ProcessLogR:
		process = &recruitment.LogRProcess[T]{LogR: b.vector("recruitment", "log_r", spec.LogR)}
	default:
		return nil, fmt.Errorf("recruitment process %q: %w", spec.Process, ErrUnknownForm)
	}
	return recruitment.New(relationship, process), nil
}
