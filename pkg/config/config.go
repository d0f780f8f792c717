// Package config provides configuration loading and management for brainrecon.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Study parameters for the reconstruction sweep
	Study struct {
		// ModelSubjects are the cohort sizes to fit models with
		ModelSubjects []int `yaml:"modelSubjects"`

		// ElectrodeCounts are the per-subject coverage levels to test
		ElectrodeCounts []int `yaml:"electrodeCounts"`

		// Samples is the number of time points per simulated recording
		Samples int `yaml:"samples"`

		// SampleRate is the simulated acquisition rate in Hz
		SampleRate float64 `yaml:"sampleRate"`

		// Seed makes simulated cohorts reproducible
		Seed int64 `yaml:"seed"`
	} `yaml:"study"`

	// Locations parameters select the reference location set
	Locations struct {
		// AtlasPath is a text atlas file with one x y z coordinate per line.
		// When empty, a synthetic grid of GridSize³ locations is used.
		AtlasPath string `yaml:"atlasPath"`

		// GridSize is the synthetic lattice edge length
		GridSize int `yaml:"gridSize"`

		// GridSpacing is the synthetic lattice spacing in mm
		GridSpacing float64 `yaml:"gridSpacing"`
	} `yaml:"locations"`

	// Processing parameters
	Processing struct {
		// Workers specifies how many study iterations run concurrently
		Workers int `yaml:"workers"`

		// KurtosisThreshold rejects channels with excess kurtosis above it
		KurtosisThreshold float64 `yaml:"kurtosisThreshold"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// ModelPath, when set, is where the fitted model is saved
		ModelPath string `yaml:"modelPath"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Study.ModelSubjects = []int{10, 20}
	cfg.Study.ElectrodeCounts = []int{5, 10, 20}
	cfg.Study.Samples = 1000
	cfg.Study.SampleRate = 1000
	cfg.Study.Seed = 1

	cfg.Locations.GridSize = 4
	cfg.Locations.GridSpacing = 20.0

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.KurtosisThreshold = 10

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
