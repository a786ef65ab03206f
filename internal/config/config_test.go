package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, 6, cfg.Ingest.HeaderRow)
	assert.Equal(t, 4, cfg.Pipeline.ExpandWorkers)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileOverlayAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	yaml := `
logging:
  level: debug
paths:
  data_dir: /tmp/raw
pipeline:
  expand_workers: 8
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o644))
	t.Setenv("CUSTODY_CONFIG_FILE", file)
	t.Setenv("CUSTODY_PATHS_DATA_DIR", "/tmp/env-raw")

	cfg, err := Load()
	require.NoError(t, err)

	// File overlays defaults.
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Pipeline.ExpandWorkers)
	// Env wins over file.
	assert.Equal(t, "/tmp/env-raw", cfg.Paths.DataDir)
	// Untouched values keep defaults.
	assert.Equal(t, 5*time.Minute, cfg.Ingest.HTTPTimeout)
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestPaths(t *testing.T) {
	p := PathsConfig{
		DataDir:         "d",
		IntermediateDir: "i",
		ProcessedDir:    "p",
		LogsDir:         "l",
	}
	assert.Equal(t, filepath.Join("d", EventsFile), p.EventsPath())
	assert.Equal(t, filepath.Join("i", CleanFile), p.CleanPath())
	assert.Equal(t, filepath.Join("p", PanelFile), p.PanelPath())

	tmp := t.TempDir()
	p = PathsConfig{
		DataDir:         filepath.Join(tmp, "d"),
		IntermediateDir: filepath.Join(tmp, "i"),
		ProcessedDir:    filepath.Join(tmp, "p"),
		LogsDir:         filepath.Join(tmp, "l"),
	}
	require.NoError(t, p.EnsureDirectories())
	for _, dir := range []string{p.DataDir, p.IntermediateDir, p.ProcessedDir, p.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
