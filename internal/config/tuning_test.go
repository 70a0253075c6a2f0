package config

import (
	"os"
	"path/filepath"
	"testing"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetMinRegionSize() != 16 {
		t.Errorf("GetMinRegionSize() = %d, want 16", cfg.GetMinRegionSize())
	}
	if cfg.GetAnomalyThreshold() != 2.0 {
		t.Errorf("GetAnomalyThreshold() = %f, want 2.0", cfg.GetAnomalyThreshold())
	}
	if cfg.GetTopK() != 10 {
		t.Errorf("GetTopK() = %d, want 10", cfg.GetTopK())
	}
	if cfg.GetMaxImageDim() != 8192 {
		t.Errorf("GetMaxImageDim() = %d, want 8192", cfg.GetMaxImageDim())
	}
	if cfg.GetSyntheticSize() != 512 {
		t.Errorf("GetSyntheticSize() = %d, want 512", cfg.GetSyntheticSize())
	}
	if cfg.GetSyntheticAnomalies() != 8 {
		t.Errorf("GetSyntheticAnomalies() = %d, want 8", cfg.GetSyntheticAnomalies())
	}
	if cfg.GetSyntheticSeed() != 42 {
		t.Errorf("GetSyntheticSeed() = %d, want 42", cfg.GetSyntheticSeed())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "min_region_size": 8,
  "anomaly_threshold": 2.5,
  "top_k": 5,
  "synthetic_seed": 7
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.MinRegionSize == nil || *cfg.MinRegionSize != 8 {
		t.Errorf("Expected MinRegionSize 8, got %v", cfg.MinRegionSize)
	}
	if cfg.AnomalyThreshold == nil || *cfg.AnomalyThreshold != 2.5 {
		t.Errorf("Expected AnomalyThreshold 2.5, got %v", cfg.AnomalyThreshold)
	}
	if cfg.TopK == nil || *cfg.TopK != 5 {
		t.Errorf("Expected TopK 5, got %v", cfg.TopK)
	}
	if cfg.SyntheticSeed == nil || *cfg.SyntheticSeed != 7 {
		t.Errorf("Expected SyntheticSeed 7, got %v", cfg.SyntheticSeed)
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	// Partial config: only override threshold; everything else keeps defaults.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	partialJSON := `{
  "anomaly_threshold": 3.0
}`
	if err := os.WriteFile(configPath, []byte(partialJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load partial config: %v", err)
	}

	if cfg.GetAnomalyThreshold() != 3.0 {
		t.Errorf("Expected overridden AnomalyThreshold 3.0, got %f", cfg.GetAnomalyThreshold())
	}
	if cfg.GetMinRegionSize() != 16 {
		t.Errorf("Expected default MinRegionSize 16, got %d", cfg.GetMinRegionSize())
	}
	if cfg.GetTopK() != 10 {
		t.Errorf("Expected default TopK 10, got %d", cfg.GetTopK())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "min_region_size": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.defaults.json")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.GetMinRegionSize() != 16 {
		t.Errorf("Expected 16, got %d", cfg.GetMinRegionSize())
	}
	if cfg.GetAnomalyThreshold() != 2.0 {
		t.Errorf("Expected 2.0, got %f", cfg.GetAnomalyThreshold())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{
			name:    "empty config is valid",
			cfg:     &TuningConfig{},
			wantErr: false,
		},
		{
			name: "valid overrides",
			cfg: &TuningConfig{
				MinRegionSize:    ptrInt(32),
				AnomalyThreshold: ptrFloat64(1.5),
			},
			wantErr: false,
		},
		{
			name: "zero min region size",
			cfg: &TuningConfig{
				MinRegionSize: ptrInt(0),
			},
			wantErr: true,
		},
		{
			name: "negative threshold",
			cfg: &TuningConfig{
				AnomalyThreshold: ptrFloat64(-1.0),
			},
			wantErr: true,
		},
		{
			name: "zero top k",
			cfg: &TuningConfig{
				TopK: ptrInt(0),
			},
			wantErr: true,
		},
		{
			name: "negative synthetic anomalies",
			cfg: &TuningConfig{
				SyntheticAnomalies: ptrInt(-1),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
