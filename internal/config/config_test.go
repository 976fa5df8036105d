package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STOCKPROJ_CONFIG", "")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Store.Kind)
	assert.Equal(t, "runs", c.Artifacts.Dir)
	assert.Equal(t, "auto", c.Log.Format)
	assert.Equal(t, 4, c.Sensitivity.Workers)
	assert.Equal(t, 1e-5, c.Sensitivity.FDStep)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  kind: sqlite\n  sqlite_path: /tmp/x.db\nsensitivity:\n  workers: 0\n"), 0o644))
	t.Setenv("STOCKPROJ_LOG_LEVEL", "debug")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.Store.Kind)
	assert.Equal(t, "/tmp/x.db", c.Store.SQLitePath)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 1, c.Sensitivity.Workers)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
