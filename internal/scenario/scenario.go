// Package scenario loads and validates scenario files.
//
// Scenarios are YAML (.yaml, .yml) or JSON (.json). Struct tags are checked
// with go-playground/validator; dimension rules that span fields are checked
// by Validate. CSV tables referenced from a scenario are resolved relative to
// the scenario file.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"stockproj/internal/datatable"
	"stockproj/internal/growth"
	"stockproj/internal/model"
	"stockproj/internal/registry"
)

var ErrInvalidScenario = errors.New("invalid scenario")

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("knownform", func(fl validator.FieldLevel) bool {
		return registry.KnownForm(fl.Field().String())
	})
}

// Load reads, resolves and validates the scenario at path.
func Load(path string) (model.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Scenario{}, err
	}
	s, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return model.Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := ResolveTables(&s, filepath.Dir(path)); err != nil {
		return model.Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(s); err != nil {
		return model.Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scenario. ext selects the decoder; anything other than
// ".json" is read as YAML. Unknown fields are rejected.
func Parse(data []byte, ext string) (model.Scenario, error) {
	var s model.Scenario
	if strings.EqualFold(ext, ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return model.Scenario{}, fmt.Errorf("decode json scenario: %w", err)
		}
		return s, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return model.Scenario{}, fmt.Errorf("decode yaml scenario: %w", err)
	}
	return s, nil
}

// ResolveTables fills Growth.Weights and fleet AgeToLength matrices from
// their CSV references when the inline values are empty.
func ResolveTables(s *model.Scenario, baseDir string) error {
	if s.Growth.WeightsCSV != "" && len(s.Growth.Weights) == 0 {
		table, err := datatable.ReadCSVFile(resolvePath(baseDir, s.Growth.WeightsCSV))
		if err != nil {
			return fmt.Errorf("growth weights_csv: %w", err)
		}
		weights, err := datatable.WeightAtAge(table, s.Ages)
		if err != nil {
			return fmt.Errorf("growth weights_csv: %w", err)
		}
		s.Growth.Weights = weights
	}
	for i := range s.Fleets {
		f := &s.Fleets[i]
		if f.AgeToLengthCSV == "" || len(f.AgeToLength) != 0 {
			continue
		}
		table, err := datatable.ReadCSVFile(resolvePath(baseDir, f.AgeToLengthCSV))
		if err != nil {
			return fmt.Errorf("fleet %q age_to_length_csv: %w", f.Name, err)
		}
		key, nLengths, err := datatable.AgeLengthKey(table, s.Ages)
		if err != nil {
			return fmt.Errorf("fleet %q age_to_length_csv: %w", f.Name, err)
		}
		f.AgeToLength = key
		f.NLengths = nLengths
	}
	return nil
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Validate checks struct tags and cross-field dimensions. Every problem is
// reported, each wrapping ErrInvalidScenario.
func Validate(s model.Scenario) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format+": %w", append(args, ErrInvalidScenario)...))
	}

	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			add("%s fails %q", fe.Namespace(), fe.Tag())
		}
	}

	nYears, nAges := s.NYears, len(s.Ages)
	for i := 1; i < nAges; i++ {
		if s.Ages[i] <= s.Ages[i-1] {
			add("ages must be strictly increasing at index %d", i)
			break
		}
	}
	if len(s.LogInitNAA) != nAges {
		add("log_init_naa has %d values for %d ages", len(s.LogInitNAA), nAges)
	}
	if n := len(s.LogM); n != 1 && n != nYears*nAges {
		add("log_m has %d values, need 1 or %d", n, nYears*nAges)
	}

	checkCurve := func(name string, c model.CurveSpec) {
		vectors := map[string][]float64{"inflection_point": c.InflectionPoint, "slope": c.Slope}
		if registry.NormalizeForm(c.Form) == "double_logistic" {
			vectors["inflection_point_desc"] = c.InflectionPointDesc
			vectors["slope_desc"] = c.SlopeDesc
		}
		for field, v := range vectors {
			if len(v) != 1 && len(v) != nYears {
				add("%s %s has %d values, need 1 or %d", name, field, len(v), nYears)
			}
		}
	}
	checkCurve("maturity", s.Maturity)

	switch registry.NormalizeForm(s.Growth.Form) {
	case "ewaa":
		if len(s.Growth.Weights) != nAges {
			add("growth weights has %d values for %d ages", len(s.Growth.Weights), nAges)
		}
	case "von_bertalanffy":
		for _, f := range s.Growth.VonBertalanffyFields() {
			switch {
			case f.Value == nil:
				errs = append(errs, fmt.Errorf("von_bertalanffy %s: %w: %w", f.Name, growth.ErrGrowthNotConfigured, ErrInvalidScenario))
			case f.Name != "t0" && *f.Value <= 0:
				add("von_bertalanffy %s = %g, need > 0", f.Name, *f.Value)
			}
		}
	}

	rec := s.Recruitment
	if registry.NormalizeForm(rec.Process) == "log_r" {
		if len(rec.LogR) != nYears {
			add("recruitment log_r has %d values, need %d", len(rec.LogR), nYears)
		}
	} else if len(rec.LogDevs) != 0 && len(rec.LogDevs) != nYears {
		add("recruitment log_devs has %d values, need 0 or %d", len(rec.LogDevs), nYears)
	}
	if registry.NormalizeForm(rec.Form) == "beverton_holt" && rec.Steepness >= 1 {
		add("beverton_holt steepness %g must be below 1", rec.Steepness)
	}

	names := make(map[string]bool, len(s.Fleets))
	for _, f := range s.Fleets {
		if names[f.Name] {
			add("fleet name %q is not unique", f.Name)
		}
		names[f.Name] = true
		if !f.IsSurvey && len(f.LogFMort) != nYears {
			add("fleet %q log_fmort has %d values, need %d", f.Name, len(f.LogFMort), nYears)
		}
		if n := len(f.LogQ); n > 1 && n != nYears {
			add("fleet %q log_q has %d values, need 0, 1 or %d", f.Name, n, nYears)
		}
		if f.NLengths > 0 && len(f.AgeToLength) != nAges*f.NLengths {
			add("fleet %q age_to_length has %d values, need %d", f.Name, len(f.AgeToLength), nAges*f.NLengths)
		}
		checkCurve(fmt.Sprintf("fleet %q selectivity", f.Name), f.Selectivity)
	}

	return errors.Join(errs...)
}

// Write encodes s as YAML or JSON by the extension of path.
func Write(path string, s model.Scenario) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(s, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
