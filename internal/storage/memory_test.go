package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockproj/internal/model"
)

func newMemory(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestMemoryStoreScenarioRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemory(t)

	input := sampleScenario("cod")
	require.NoError(t, store.SaveScenario(ctx, input))

	// mutating the caller's copy must not leak into the store
	input.Ages[0] = 99
	output, ok, err := store.GetScenario(ctx, "cod")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.0, output.Ages[0])

	_, ok, err = store.GetScenario(ctx, "haddock")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveScenario(ctx, sampleScenario("arrowtooth")))
	ids, err := store.ListScenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"arrowtooth", "cod"}, ids)
}

func TestMemoryStoreRejectsUnstampedScenario(t *testing.T) {
	store := newMemory(t)
	scenario := sampleScenario("cod")
	scenario.VersionedRecord = model.VersionedRecord{}
	require.ErrorIs(t, store.SaveScenario(context.Background(), scenario), ErrVersionMismatch)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	require.Error(t, store.SaveScenario(context.Background(), sampleScenario("cod")))
}

func TestMemoryStoreRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newMemory(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(ctx, sampleRun("r1", "cod", base)))
	require.NoError(t, store.SaveRun(ctx, sampleRun("r2", "cod", base.Add(time.Hour))))
	require.NoError(t, store.SaveRun(ctx, sampleRun("r3", "pollock", base.Add(2*time.Hour))))

	runs, err := store.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r1", runs[2].ID)

	runs, err = store.ListRuns(ctx, "cod")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)

	run, ok, err := store.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{500, 460, 420.5}, run.Output.SpawningBiomass)
}

func TestMemoryStoreSensitivityRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemory(t)

	input := []model.SensitivityRecord{
		{VersionedRecord: Stamp(), Parameter: "trawl/log_fmort[0]", Output: "spawning_biomass[-1]", Derivative: -12.5},
		{VersionedRecord: Stamp(), Parameter: "recruitment/log_rzero[0]", Output: "spawning_biomass[-1]", Derivative: 3.25},
	}
	require.NoError(t, store.SaveSensitivity(ctx, "r1", input))

	output, ok, err := store.GetSensitivity(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, input, output)

	_, ok, err = store.GetSensitivity(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
