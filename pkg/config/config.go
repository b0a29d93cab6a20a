package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// Config holds the application configuration.
// Values come from an optional YAML file; environment variables override it.
type Config struct {
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Port        string `yaml:"port" env:"PORT" env-default:"8080"`

	DataDir      string `yaml:"data_dir" env:"DATA_DIR" env-default:"data"`
	OutputDir    string `yaml:"output_dir" env:"OUTPUT_DIR" env-default:"output"`
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH" env-default:"output/curator.db"`
	ManifestPath string `yaml:"manifest_path" env:"MANIFEST_PATH" env-default:"manifest.yaml"`

	// Organism and SourceVersion apply when a manifest leaves them empty
	Organism             string `yaml:"organism" env:"ORGANISM" env-default:"Homo sapiens"`
	SourceVersion        string `yaml:"source_version" env:"SOURCE_VERSION" env-default:""`
	VersionCheckURL      string `yaml:"version_check_url" env:"VERSION_CHECK_URL" env-default:""`
	StrictReconciliation bool   `yaml:"strict_reconciliation" env:"STRICT_RECONCILIATION" env-default:"true"`

	MaxValue       float64 `yaml:"max_value" env:"MAX_VALUE" env-default:"2.0"`
	ColorMap       string  `yaml:"color_map" env:"COLOR_MAP" env-default:"coolwarm"`
	FallbackMean   float64 `yaml:"fallback_mean" env:"FALLBACK_MEAN" env-default:"0"`
	FallbackStdDev float64 `yaml:"fallback_stddev" env:"FALLBACK_STDDEV" env-default:"1"`
	FallbackSeed   uint64  `yaml:"fallback_seed" env:"FALLBACK_SEED" env-default:"42"`

	StatsMode    string `yaml:"stats_mode" env:"STATS_MODE" env-default:"ttest"`
	StatsWorkers int    `yaml:"stats_workers" env:"STATS_WORKERS" env-default:"4"`

	RebuildSchedule string `yaml:"rebuild_schedule" env:"REBUILD_SCHEDULE" env-default:""`
}

// Load reads path (if it exists) with environment overrides, then validates
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromEnv()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return LoadFromEnv()
	}

	cfg := &Config{}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks numeric ranges and enumerations
func (c *Config) Validate() error {
	if !(c.MaxValue > 0) || math.IsInf(c.MaxValue, 1) {
		return fmt.Errorf("%w: MAX_VALUE must be positive and finite, got %v", apperrors.ErrRange, c.MaxValue)
	}
	if math.IsNaN(c.FallbackMean) || math.IsInf(c.FallbackMean, 0) {
		return fmt.Errorf("%w: FALLBACK_MEAN must be finite, got %v", apperrors.ErrRange, c.FallbackMean)
	}
	if !(c.FallbackStdDev >= 0) || math.IsInf(c.FallbackStdDev, 1) {
		return fmt.Errorf("%w: FALLBACK_STDDEV must be finite and not negative, got %v", apperrors.ErrRange, c.FallbackStdDev)
	}
	if !models.StatsMode(c.StatsMode).IsValid() {
		return fmt.Errorf("%w: STATS_MODE must be ttest or fdr_bh, got %q", apperrors.ErrRange, c.StatsMode)
	}
	if c.StatsWorkers < 1 {
		return fmt.Errorf("%w: STATS_WORKERS must be at least 1, got %d", apperrors.ErrRange, c.StatsWorkers)
	}
	if c.Organism == "" {
		c.Organism = models.DefaultOrganism
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
