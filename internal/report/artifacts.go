// Package report writes run artifacts to disk: a JSON summary and output
// snapshot, CSV time series, and a run index shared by all runs under one
// base directory.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"stockproj/internal/datatable"
	"stockproj/internal/model"
)

const runIndexFile = "run_index.json"

var ErrInvalidRunID = errors.New("invalid run id")

const (
	scenarioFile    = "scenario.json"
	summaryFile     = "summary.json"
	outputFile      = "output.json"
	populationCSV   = "population_series.csv"
	fleetCSV        = "fleet_series.csv"
	numbersAtAgeCSV = "numbers_at_age.csv"
	sensitivityFile = "sensitivity.json"
)

// CheckRunID rejects ids that are empty or would not name a single directory
// directly under the artifacts directory.
func CheckRunID(runID string) error {
	switch {
	case strings.TrimSpace(runID) == "":
		return fmt.Errorf("run id is required: %w", ErrInvalidRunID)
	case runID == "." || runID == "..", strings.ContainsAny(runID, `/\`), filepath.Base(runID) != runID:
		return fmt.Errorf("run id %q: %w", runID, ErrInvalidRunID)
	}
	return nil
}

func runPath(baseDir, runID string) (string, error) {
	if err := CheckRunID(runID); err != nil {
		return "", err
	}
	return filepath.Join(baseDir, runID), nil
}

// Summary is the run record without its output arrays.
type Summary struct {
	RunID                   string    `json:"run_id"`
	ScenarioID              string    `json:"scenario_id"`
	CreatedAt               time.Time `json:"created_at"`
	DurationMillis          int64     `json:"duration_ms"`
	NYears                  int       `json:"n_years"`
	NAges                   int       `json:"n_ages"`
	Fleets                  []string  `json:"fleets"`
	Phi0                    float64   `json:"phi0"`
	TerminalSpawningBiomass float64   `json:"terminal_spawning_biomass"`
	TerminalBiomass         float64   `json:"terminal_biomass"`
	Depletion               float64   `json:"depletion"`
	TotalCatch              float64   `json:"total_catch"`
}

type RunIndexEntry struct {
	RunID                   string  `json:"run_id"`
	ScenarioID              string  `json:"scenario_id"`
	NYears                  int     `json:"n_years"`
	NAges                   int     `json:"n_ages"`
	NFleets                 int     `json:"n_fleets"`
	TerminalSpawningBiomass float64 `json:"terminal_spawning_biomass"`
	Depletion               float64 `json:"depletion"`
	TotalCatch              float64 `json:"total_catch"`
	CreatedAtUTC            string  `json:"created_at_utc"`
}

func Summarize(run model.RunRecord) Summary {
	fleets := make([]string, 0, len(run.Output.Fleets))
	for _, f := range run.Output.Fleets {
		fleets = append(fleets, f.Name)
	}
	return Summary{
		RunID:                   run.ID,
		ScenarioID:              run.ScenarioID,
		CreatedAt:               run.CreatedAt,
		DurationMillis:          run.DurationMillis,
		NYears:                  run.Output.NYears,
		NAges:                   run.Output.NAges,
		Fleets:                  fleets,
		Phi0:                    run.Output.Phi0,
		TerminalSpawningBiomass: run.TerminalSpawningBiomass,
		TerminalBiomass:         run.TerminalBiomass,
		Depletion:               run.Depletion,
		TotalCatch:              run.TotalCatch,
	}
}

func IndexEntry(run model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:                   run.ID,
		ScenarioID:              run.ScenarioID,
		NYears:                  run.Output.NYears,
		NAges:                   run.Output.NAges,
		NFleets:                 len(run.Output.Fleets),
		TerminalSpawningBiomass: run.TerminalSpawningBiomass,
		Depletion:               run.Depletion,
		TotalCatch:              run.TotalCatch,
		CreatedAtUTC:            run.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// WriteRunArtifacts writes every artifact of run into baseDir/<run id> and
// returns that directory.
func WriteRunArtifacts(baseDir string, scenario model.Scenario, run model.RunRecord) (string, error) {
	dir, err := runPath(baseDir, run.ID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(dir, scenarioFile), scenario); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, summaryFile), Summarize(run)); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, outputFile), run.Output); err != nil {
		return "", err
	}
	if err := writeTable(filepath.Join(dir, populationCSV), PopulationSeries(run.Output)); err != nil {
		return "", err
	}
	if err := writeTable(filepath.Join(dir, fleetCSV), FleetSeries(run.Output)); err != nil {
		return "", err
	}
	if err := writeTable(filepath.Join(dir, numbersAtAgeCSV), NumbersAtAge(run.Output)); err != nil {
		return "", err
	}
	return dir, nil
}

// PopulationSeries has one row per year 0..NYears. Recruitment is the
// realized age-0 abundance.
func PopulationSeries(out model.PopulationOutput) datatable.Table {
	t := datatable.Table{Header: []string{
		"year", "biomass", "spawning_biomass", "expected_recruitment", "recruitment",
		"unfished_biomass", "unfished_spawning_biomass",
	}}
	for y := 0; y <= out.NYears; y++ {
		t.Rows = append(t.Rows, []float64{
			float64(y),
			at(out.Biomass, y),
			at(out.SpawningBiomass, y),
			at(out.ExpectedRecruitment, y),
			at(out.NumbersAtAge, y*out.NAges),
			at(out.UnfishedBiomass, y),
			at(out.UnfishedSpawningBiomass, y),
		})
	}
	return t
}

// FleetSeries has one row per model year and, per fleet, columns for fishing
// intensity, expected catch and expected index.
func FleetSeries(out model.PopulationOutput) datatable.Table {
	t := datatable.Table{Header: []string{"year"}}
	for _, f := range out.Fleets {
		t.Header = append(t.Header, f.Name+"_fmort", f.Name+"_expected_catch", f.Name+"_expected_index")
	}
	for y := 0; y < out.NYears; y++ {
		row := []float64{float64(y)}
		for _, f := range out.Fleets {
			row = append(row, at(f.FMort, y), at(f.ExpectedCatch, y), at(f.ExpectedIndex, y))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// NumbersAtAge is the numbers-at-age matrix with one row per year.
func NumbersAtAge(out model.PopulationOutput) datatable.Table {
	t := datatable.Table{Header: []string{"year"}}
	for a := 0; a < out.NAges; a++ {
		label := fmt.Sprintf("age_%d", a)
		if a < len(out.Ages) {
			label = fmt.Sprintf("age_%g", out.Ages[a])
		}
		t.Header = append(t.Header, label)
	}
	for y := 0; y <= out.NYears; y++ {
		row := []float64{float64(y)}
		for a := 0; a < out.NAges; a++ {
			row = append(row, at(out.NumbersAtAge, y*out.NAges+a))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func at(values []float64, i int) float64 {
	if i < 0 || i >= len(values) {
		return 0
	}
	return values[i]
}

func WriteSensitivity(baseDir, runID string, records []model.SensitivityRecord) error {
	dir, err := runPath(baseDir, runID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, sensitivityFile), records)
}

func ReadSummary(baseDir, runID string) (Summary, bool, error) {
	dir, err := runPath(baseDir, runID)
	if err != nil {
		return Summary{}, false, err
	}
	data, err := os.ReadFile(filepath.Join(dir, summaryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Summary{}, false, nil
		}
		return Summary{}, false, err
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return Summary{}, false, err
	}
	return summary, true, nil
}

// ReadRun rebuilds a run record from its summary and output artifacts.
func ReadRun(baseDir, runID string) (model.RunRecord, bool, error) {
	summary, ok, err := ReadSummary(baseDir, runID)
	if err != nil || !ok {
		return model.RunRecord{}, ok, err
	}
	data, err := os.ReadFile(filepath.Join(baseDir, runID, outputFile))
	if err != nil {
		return model.RunRecord{}, false, err
	}
	var out model.PopulationOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode %s output: %w", runID, err)
	}
	return model.RunRecord{
		ID:                      summary.RunID,
		ScenarioID:              summary.ScenarioID,
		CreatedAt:               summary.CreatedAt,
		DurationMillis:          summary.DurationMillis,
		TerminalSpawningBiomass: summary.TerminalSpawningBiomass,
		TerminalBiomass:         summary.TerminalBiomass,
		Depletion:               summary.Depletion,
		TotalCatch:              summary.TotalCatch,
		Output:                  out,
	}, true, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	// later appends win ties
	order := make(map[string]int, len(entries))
	for i, e := range entries {
		order[e.RunID] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAtUTC == entries[j].CreatedAtUTC {
			return order[entries[i].RunID] > order[entries[j].RunID]
		}
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

// ExportRunArtifacts copies the artifacts of runID into outDir/<run id>.
// The sensitivity file is copied when present.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	src, err := runPath(baseDir, runID)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{scenarioFile, summaryFile, outputFile, populationCSV, fleetCSV, numbersAtAgeCSV}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	sensitivityPath := filepath.Join(src, sensitivityFile)
	if _, err := os.Stat(sensitivityPath); err == nil {
		if err := copyFile(sensitivityPath, filepath.Join(dst, sensitivityFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return dst, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func writeTable(path string, t datatable.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := datatable.WriteCSV(file, t); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
