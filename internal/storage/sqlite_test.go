//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockproj/internal/model"
)

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "stockproj.db"))
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteStoreScenarioRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLite(t)

	input := sampleScenario("cod")
	require.NoError(t, store.SaveScenario(ctx, input))
	input.Description = "updated"
	require.NoError(t, store.SaveScenario(ctx, input))

	output, ok, err := store.GetScenario(ctx, "cod")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, input, output)

	ids, err := store.ListScenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cod"}, ids)
}

func TestSQLiteStoreRunsAndSensitivity(t *testing.T) {
	ctx := context.Background()
	store := newSQLite(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(ctx, sampleRun("r1", "cod", base)))
	require.NoError(t, store.SaveRun(ctx, sampleRun("r2", "pollock", base.Add(time.Minute))))

	runs, err := store.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)

	runs, err = store.ListRuns(ctx, "cod")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 0.42, runs[0].Depletion)

	_, ok, err := store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	records := []model.SensitivityRecord{{VersionedRecord: Stamp(), Parameter: "log_m[0]", Derivative: -4}}
	require.NoError(t, store.SaveSensitivity(ctx, "r1", records))
	output, ok, err := store.GetSensitivity(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, records, output)
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	require.Error(t, NewSQLiteStore("").Init(context.Background()))
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "factory.db"))
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, CloseIfSupported(store))
}
