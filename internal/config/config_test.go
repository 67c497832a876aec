package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 0.75, cfg.MinScore)
	assert.Equal(t, 30, cfg.RetentionDays)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
obs_index: /data/obs.json
rem_index: /data/rem.json
link_file: /data/links.json
min_score: 0.6
date_tolerance_days: 3
include_done: true
top_k: 25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/obs.json", cfg.ObsIndexPath)
	assert.Equal(t, 0.6, cfg.MinScore)
	assert.Equal(t, 3, cfg.DateToleranceDays)
	assert.True(t, cfg.IncludeDone)
	assert.Equal(t, 25, cfg.TopK)
	// Untouched fields keep defaults.
	assert.Equal(t, 30, cfg.RetentionDays)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mni_score: 0.6\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err, "typo'd keys must not be silently ignored")
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_score: [0.6\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Ranges(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.MinScore = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.DateToleranceDays = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RetentionDays = -1
	assert.Error(t, cfg.Validate())
}
