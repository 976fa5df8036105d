package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockproj/internal/datatable"
	"stockproj/internal/model"
)

func sampleRun(id string, createdAt time.Time) model.RunRecord {
	return model.RunRecord{
		ID:                      id,
		ScenarioID:              "cod",
		CreatedAt:               createdAt,
		TerminalSpawningBiomass: 420.5,
		Depletion:               0.42,
		TotalCatch:              58,
		Output: model.PopulationOutput{
			Name:                    "cod",
			NYears:                  2,
			NAges:                   2,
			Ages:                    []float64{1, 2},
			NumbersAtAge:            []float64{100, 50, 90, 60, 80, 65},
			Biomass:                 []float64{600, 580, 560},
			SpawningBiomass:         []float64{500, 460, 420.5},
			ExpectedRecruitment:     []float64{100, 95, 92},
			UnfishedBiomass:         []float64{600, 620, 640},
			UnfishedSpawningBiomass: []float64{500, 520, 1000},
			Fleets: []model.FleetOutput{
				{Name: "trawl", FMort: []float64{0.2, 0.3}, ExpectedCatch: []float64{30, 28}, ExpectedIndex: []float64{0, 0}},
				{Name: "survey", IsSurvey: true, FMort: []float64{0, 0}, ExpectedCatch: []float64{0, 0}, ExpectedIndex: []float64{1.5, 1.4}},
			},
		},
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")
	run := sampleRun("run-123", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	runDir, err := WriteRunArtifacts(baseDir, model.Scenario{ID: "cod", NYears: 2}, run)
	require.NoError(t, err)

	files := []string{"scenario.json", "summary.json", "output.json", "population_series.csv", "fleet_series.csv", "numbers_at_age.csv"}
	for _, file := range files {
		assert.FileExists(t, filepath.Join(runDir, file))
	}

	exported, err := ExportRunArtifacts(baseDir, run.ID, outDir)
	require.NoError(t, err)
	for _, file := range files {
		assert.FileExists(t, filepath.Join(exported, file))
	}
	assert.NoFileExists(t, filepath.Join(exported, "sensitivity.json"))

	require.NoError(t, WriteSensitivity(baseDir, run.ID, []model.SensitivityRecord{{Parameter: "trawl/log_fmort[0]", Derivative: -1}}))
	exported, err = ExportRunArtifacts(baseDir, run.ID, outDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(exported, "sensitivity.json"))

	summary, ok, err := ReadSummary(baseDir, run.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"trawl", "survey"}, summary.Fleets)
	assert.Equal(t, 420.5, summary.TerminalSpawningBiomass)

	restored, ok, err := ReadRun(baseDir, run.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, run.Output.SpawningBiomass, restored.Output.SpawningBiomass)
	assert.Equal(t, run.TotalCatch, restored.TotalCatch)
	assert.True(t, run.CreatedAt.Equal(restored.CreatedAt))

	_, ok, err = ReadRun(baseDir, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ReadSummary(baseDir, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	_, err := WriteRunArtifacts(t.TempDir(), model.Scenario{}, model.RunRecord{})
	require.Error(t, err)
}

func TestExportMissingRun(t *testing.T) {
	_, err := ExportRunArtifacts(t.TempDir(), "nope", t.TempDir())
	require.Error(t, err)
}

func TestSeriesTablesRoundTripThroughCSV(t *testing.T) {
	baseDir := t.TempDir()
	run := sampleRun("run-1", time.Now())
	runDir, err := WriteRunArtifacts(baseDir, model.Scenario{}, run)
	require.NoError(t, err)

	pop, err := datatable.ReadCSVFile(filepath.Join(runDir, "population_series.csv"))
	require.NoError(t, err)
	require.Len(t, pop.Rows, 3)
	sb, err := pop.Column("spawning_biomass")
	require.NoError(t, err)
	assert.Equal(t, []float64{500, 460, 420.5}, sb)
	recruits, err := pop.Column("recruitment")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 90, 80}, recruits)

	fleets, err := datatable.ReadCSVFile(filepath.Join(runDir, "fleet_series.csv"))
	require.NoError(t, err)
	require.Len(t, fleets.Rows, 2)
	catch, err := fleets.Column("trawl_expected_catch")
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 28}, catch)
	index, err := fleets.Column("survey_expected_index")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1.4}, index)

	naa, err := datatable.ReadCSVFile(filepath.Join(runDir, "numbers_at_age.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "age_1", "age_2"}, naa.Header)
	assert.Equal(t, []float64{2, 80, 65}, naa.Rows[2])
}

func TestRunIndexNewestFirstAndUpsert(t *testing.T) {
	baseDir := t.TempDir()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	entries, err := ListRunIndex(baseDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, AppendRunIndex(baseDir, IndexEntry(sampleRun("a", t0))))
	require.NoError(t, AppendRunIndex(baseDir, IndexEntry(sampleRun("b", t0.Add(time.Hour)))))
	require.NoError(t, AppendRunIndex(baseDir, IndexEntry(sampleRun("c", t0.Add(30*time.Minute)))))

	entries, err = ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{entries[0].RunID, entries[1].RunID, entries[2].RunID})
	assert.Equal(t, 2, entries[0].NFleets)

	updated := IndexEntry(sampleRun("a", t0))
	updated.TotalCatch = 99
	require.NoError(t, AppendRunIndex(baseDir, updated))
	entries, err = ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 99.0, entries[2].TotalCatch)

	require.Error(t, AppendRunIndex(baseDir, RunIndexEntry{}))
}

func TestListRunIndexRejectsCorruptFile(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "run_index.json"), []byte("{"), 0o644))
	_, err := ListRunIndex(baseDir)
	require.Error(t, err)
}

func TestRunIDsMustNameOneDirectory(t *testing.T) {
	root := t.TempDir()
	baseDir := filepath.Join(root, "artifacts")
	outDir := filepath.Join(root, "exports")
	_, err := WriteRunArtifacts(baseDir, model.Scenario{}, sampleRun("ok", time.Now()))
	require.NoError(t, err)

	for _, id := range []string{"", "  ", ".", "..", "../ok", "a/b", `a\b`, "/tmp"} {
		require.ErrorIs(t, CheckRunID(id), ErrInvalidRunID, "id %q", id)
	}
	require.NoError(t, CheckRunID("2026-10-18_ok-1"))

	_, err = ExportRunArtifacts(baseDir, "../artifacts/ok", outDir)
	require.ErrorIs(t, err, ErrInvalidRunID)
	_, err = WriteRunArtifacts(baseDir, model.Scenario{}, sampleRun("../escaped", time.Now()))
	require.ErrorIs(t, err, ErrInvalidRunID)
	require.ErrorIs(t, WriteSensitivity(baseDir, "../escaped", nil), ErrInvalidRunID)
	_, _, err = ReadRun(baseDir, "../artifacts/ok")
	require.ErrorIs(t, err, ErrInvalidRunID)

	assert.NoDirExists(t, filepath.Join(root, "escaped"))
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
