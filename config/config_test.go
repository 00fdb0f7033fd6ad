package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/dspace/config"
	"github.com/katalvlaran/dspace/designspace"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dspace.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

// TestLoad_Defaults matches designspace.DefaultConfig when nothing is set.
func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	s, err := config.Load("")
	require.NoError(t, err)

	d := designspace.DefaultConfig()
	assert.Equal(t, d.MaxSize, s.MaxSize)
	assert.Equal(t, d.MaxCandidates, s.MaxCandidates)
	assert.Equal(t, designspace.Heuristic, s.Mode)
	assert.Equal(t, d.Range, s.Range)
	assert.Equal(t, d.Cutoff, s.Cutoff)
	assert.True(t, s.Options.ResolveCycles)
	assert.Equal(t, slog.LevelInfo, s.Log.Level)
	assert.Equal(t, "dspace.log", s.Log.Filename)
}

// TestLoad_FileAndEnv reads a yaml file and lets the environment win.
func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
search:
  workers: 2
  max_size: 4
  mode: complete
bounds:
  lower: 0.001
  upper: 1000
space:
  resolve_cycles: false
log:
  level: debug
`)
	t.Setenv("DSPACE_SEARCH_MAX_SIZE", "6")

	s, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Workers)
	assert.Equal(t, 6, s.MaxSize)
	assert.Equal(t, designspace.Complete, s.Mode)
	assert.Equal(t, 0.001, s.Range.Lower)
	assert.Equal(t, 1000.0, s.Range.Upper)
	assert.False(t, s.Options.ResolveCycles)
	assert.Equal(t, slog.LevelDebug, s.Log.Level)

	cfg := s.Space([]string{"Y"}, slog.Default())
	assert.Equal(t, []string{"Y"}, cfg.Auxiliary)
	assert.Equal(t, designspace.Complete, cfg.Mode)
	assert.Equal(t, 6, cfg.MaxSize)
}

// TestLoad_Invalid rejects unusable settings and a missing explicit file.
func TestLoad_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"mode":   "search:\n  mode: greedy\n",
		"size":   "search:\n  max_size: 0\n",
		"bounds": "bounds:\n  lower: 10\n  upper: 1\n",
		"cutoff": "volume:\n  cutoff_lower: 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, body))
			assert.ErrorIs(t, err, config.ErrInvalid)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// TestNewLogger writes through the rotating file at the configured level.
func TestNewLogger(t *testing.T) {
	name := filepath.Join(t.TempDir(), "dspace.log")
	logger, closer := config.NewLogger(config.Log{Filename: name, Level: slog.LevelWarn, MaxSize: 1})

	logger.Info("dropped")
	logger.Warn("kept", "case", "3_1")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.Contains(t, string(data), "case=3_1")
	assert.NotContains(t, string(data), "dropped")

	verbose, closer := config.NewLogger(config.Log{Filename: name, Verbose: true})
	defer closer.Close()
	assert.True(t, verbose.Enabled(context.Background(), slog.LevelDebug))
}
