// Package config loads the sync configuration file.
//
// Configuration is a flat YAML document. Every knob has a working default,
// so a missing config file is not an error - first runs work with nothing
// but the index paths supplied on the command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all tunables for a link-building pass.
type Config struct {
	// Artifact paths.
	ObsIndexPath string `yaml:"obs_index"`
	RemIndexPath string `yaml:"rem_index"`
	LinkPath     string `yaml:"link_file"`
	HistoryPath  string `yaml:"history_db,omitempty"`

	// Matching parameters.
	MinScore          float64 `yaml:"min_score"`
	DateToleranceDays int     `yaml:"date_tolerance_days"`
	IncludeDone       bool    `yaml:"include_done"`

	// Performance thresholds; zero means the built-in default.
	PruneThreshold      int `yaml:"prune_threshold,omitempty"`
	GreedyOnlyThreshold int `yaml:"greedy_only_threshold,omitempty"`
	TopK                int `yaml:"top_k,omitempty"`

	// RetentionDays is the Missing->Deleted aging window for task records.
	RetentionDays int `yaml:"retention_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MinScore:          0.75,
		DateToleranceDays: 1,
		RetentionDays:     30,
	}
}

// Load reads the config file at path, layered over the defaults. A missing
// file yields the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. Paths are checked by the commands that need
// them, not here, so read-only commands can run with a partial config.
func (c Config) Validate() error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score %v out of range [0, 1]", c.MinScore)
	}
	if c.DateToleranceDays < 0 {
		return fmt.Errorf("date_tolerance_days %d must be >= 0", c.DateToleranceDays)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention_days %d must be >= 0", c.RetentionDays)
	}
	if c.PruneThreshold < 0 || c.GreedyOnlyThreshold < 0 || c.TopK < 0 {
		return errors.New("thresholds must be >= 0")
	}
	return nil
}
