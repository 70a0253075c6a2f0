// Package config loads analysis tuning parameters from JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// Fields are pointers so a partial JSON file only overrides what it names;
// the Get* accessors supply defaults for everything else.
type TuningConfig struct {
	// Analysis params
	MinRegionSize    *int     `json:"min_region_size,omitempty"`
	AnomalyThreshold *float64 `json:"anomaly_threshold,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	MaxImageDim      *int     `json:"max_image_dim,omitempty"`

	// Synthetic scene params
	SyntheticSize      *int   `json:"synthetic_size,omitempty"`
	SyntheticAnomalies *int   `json:"synthetic_anomalies,omitempty"`
	SyntheticSeed      *int64 `json:"synthetic_seed,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Omitted fields
// stay nil, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that any set values are usable.
func (c *TuningConfig) Validate() error {
	if c.MinRegionSize != nil && *c.MinRegionSize <= 0 {
		return fmt.Errorf("min_region_size must be positive, got %d", *c.MinRegionSize)
	}
	if c.AnomalyThreshold != nil && *c.AnomalyThreshold <= 0 {
		return fmt.Errorf("anomaly_threshold must be positive, got %f", *c.AnomalyThreshold)
	}
	if c.TopK != nil && *c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", *c.TopK)
	}
	if c.MaxImageDim != nil && *c.MaxImageDim <= 0 {
		return fmt.Errorf("max_image_dim must be positive, got %d", *c.MaxImageDim)
	}
	if c.SyntheticSize != nil && *c.SyntheticSize <= 0 {
		return fmt.Errorf("synthetic_size must be positive, got %d", *c.SyntheticSize)
	}
	if c.SyntheticAnomalies != nil && *c.SyntheticAnomalies < 0 {
		return fmt.Errorf("synthetic_anomalies must be non-negative, got %d", *c.SyntheticAnomalies)
	}
	return nil
}

// GetMinRegionSize returns the min_region_size value or the default.
func (c *TuningConfig) GetMinRegionSize() int {
	if c.MinRegionSize == nil {
		return 16
	}
	return *c.MinRegionSize
}

// GetAnomalyThreshold returns the anomaly_threshold value or the default.
func (c *TuningConfig) GetAnomalyThreshold() float64 {
	if c.AnomalyThreshold == nil {
		return 2.0
	}
	return *c.AnomalyThreshold
}

// GetTopK returns the top_k value or the default.
func (c *TuningConfig) GetTopK() int {
	if c.TopK == nil {
		return 10
	}
	return *c.TopK
}

// GetMaxImageDim returns the max_image_dim value or the default.
func (c *TuningConfig) GetMaxImageDim() int {
	if c.MaxImageDim == nil {
		return 8192
	}
	return *c.MaxImageDim
}

// GetSyntheticSize returns the synthetic_size value or the default.
func (c *TuningConfig) GetSyntheticSize() int {
	if c.SyntheticSize == nil {
		return 512
	}
	return *c.SyntheticSize
}

// GetSyntheticAnomalies returns the synthetic_anomalies value or the default.
func (c *TuningConfig) GetSyntheticAnomalies() int {
	if c.SyntheticAnomalies == nil {
		return 8
	}
	return *c.SyntheticAnomalies
}

// GetSyntheticSeed returns the synthetic_seed value or the default.
func (c *TuningConfig) GetSyntheticSeed() int64 {
	if c.SyntheticSeed == nil {
		return 42
	}
	return *c.SyntheticSeed
}
