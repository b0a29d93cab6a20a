package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
)

// TestLoadConfig tests configuration loading
func TestLoadConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_VALUE", "3.5")
	t.Setenv("STATS_MODE", "fdr_bh")
	t.Setenv("FALLBACK_SEED", "7")
	t.Setenv("STRICT_RECONCILIATION", "false")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Environment != "test" {
		t.Errorf("Expected environment 'test', got '%s'", cfg.Environment)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.MaxValue != 3.5 {
		t.Errorf("Expected MaxValue 3.5, got %v", cfg.MaxValue)
	}
	if cfg.StatsMode != "fdr_bh" {
		t.Errorf("Expected StatsMode fdr_bh, got %s", cfg.StatsMode)
	}
	if cfg.FallbackSeed != 7 {
		t.Errorf("Expected FallbackSeed 7, got %d", cfg.FallbackSeed)
	}
	if cfg.StrictReconciliation {
		t.Error("Expected strict reconciliation to be disabled")
	}
}

// TestLoadConfigDefaults tests default values
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Expected default environment 'development', got '%s'", cfg.Environment)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port '8080', got '%s'", cfg.Port)
	}
	if cfg.Organism != "Homo sapiens" {
		t.Errorf("Expected default organism 'Homo sapiens', got '%s'", cfg.Organism)
	}
	if cfg.MaxValue != 2.0 {
		t.Errorf("Expected default MaxValue 2.0, got %v", cfg.MaxValue)
	}
	if cfg.ColorMap != "coolwarm" {
		t.Errorf("Expected default color map coolwarm, got %s", cfg.ColorMap)
	}
	if cfg.FallbackMean != 0 || cfg.FallbackStdDev != 1 || cfg.FallbackSeed != 42 {
		t.Errorf("Unexpected fallback defaults: %v %v %d", cfg.FallbackMean, cfg.FallbackStdDev, cfg.FallbackSeed)
	}
	if cfg.StatsMode != "ttest" || cfg.StatsWorkers != 4 {
		t.Errorf("Unexpected stats defaults: %s %d", cfg.StatsMode, cfg.StatsWorkers)
	}
	if !cfg.StrictReconciliation {
		t.Error("Expected strict reconciliation by default")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "organism: Mus musculus\ncolor_map: viridis\nrebuild_schedule: \"0 3 * * *\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("COLOR_MAP", "greys")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Organism != "Mus musculus" {
		t.Errorf("Expected organism from file, got %s", cfg.Organism)
	}
	if cfg.ColorMap != "greys" {
		t.Errorf("Expected environment to override file, got %s", cfg.ColorMap)
	}
	if cfg.RebuildSchedule != "0 3 * * *" {
		t.Errorf("Expected rebuild schedule from file, got %q", cfg.RebuildSchedule)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port, got %s", cfg.Port)
	}

	// a missing file falls back to the environment
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("Expected missing config file to be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero max value", "MAX_VALUE", "0"},
		{"negative max value", "MAX_VALUE", "-1"},
		{"negative stddev", "FALLBACK_STDDEV", "-0.5"},
		{"nan stddev", "FALLBACK_STDDEV", "NaN"},
		{"infinite stddev", "FALLBACK_STDDEV", "+Inf"},
		{"nan mean", "FALLBACK_MEAN", "NaN"},
		{"infinite max value", "MAX_VALUE", "Inf"},
		{"unknown stats mode", "STATS_MODE", "bonferroni"},
		{"no workers", "STATS_WORKERS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := LoadFromEnv(); !errors.Is(err, apperrors.ErrRange) {
				t.Errorf("Expected ErrRange, got %v", err)
			}
		})
	}
}
