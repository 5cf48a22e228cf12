// Package config loads the pipeline configuration from a YAML file.
// Every section has working defaults; an absent file or section leaves
// its defaults in place.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/velyan/lanetrace/internal/binarize"
	"github.com/velyan/lanetrace/internal/calib"
	"github.com/velyan/lanetrace/internal/lane"
	"github.com/velyan/lanetrace/internal/overlay"
	"github.com/velyan/lanetrace/internal/warp"
)

// Telemetry configures the per-frame measurement store.
type Telemetry struct {
	// Path is the SQLite database file. An empty path disables
	// telemetry.
	Path string `yaml:"path"`
}

// Config aggregates the per-stage configuration sections.
type Config struct {
	Calibration calib.Config        `yaml:"calibration"`
	Perspective warp.Config         `yaml:"perspective"`
	Binarize    binarize.Thresholds `yaml:"binarize"`
	Search      lane.SearchConfig   `yaml:"search"`
	Model       lane.ModelConfig    `yaml:"model"`
	Overlay     overlay.Config      `yaml:"overlay"`
	Telemetry   Telemetry           `yaml:"telemetry"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Calibration: calib.DefaultConfig(),
		Perspective: warp.DefaultConfig(),
		Binarize:    binarize.DefaultThresholds(),
		Search:      lane.DefaultSearchConfig(),
		Model:       lane.DefaultModelConfig(),
		Overlay:     overlay.DefaultConfig(),
		Telemetry:   Telemetry{Path: "lanetrace.db"},
	}
}

// Load reads a YAML configuration file on top of the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals YAML on top of whatever cfg already holds.
func Parse(data []byte, cfg *Config) error {
	return yaml.Unmarshal(data, cfg)
}
