package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "carbonstream/libs/config"
)

// Default upstream endpoints of the national grid carbon-intensity API.
const (
	defaultIntensityURL     = "https://api.carbonintensity.org.uk/intensity"
	defaultGenerationMixURL = "https://api.carbonintensity.org.uk/generation"
)

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"CARBON_ETL_POSTGRES_DSN"`
}

// UpstreamConfig holds the endpoint URLs and fetch retry policy.
type UpstreamConfig struct {
	IntensityURL     string             `yaml:"intensity_url" env:"CARBON_ETL_INTENSITY_URL"`
	GenerationMixURL string             `yaml:"generation_mix_url" env:"CARBON_ETL_GENERATION_MIX_URL"`
	MaxAttempts      int                `yaml:"max_attempts" env:"CARBON_ETL_MAX_ATTEMPTS"`
	BackoffBase      libconfig.Duration `yaml:"backoff_base" env:"CARBON_ETL_BACKOFF_BASE"`
	AttemptTimeout   libconfig.Duration `yaml:"attempt_timeout" env:"CARBON_ETL_ATTEMPT_TIMEOUT"`
}

// PipelineConfig holds validation tuning.
type PipelineConfig struct {
	FreshnessWindow  libconfig.Duration `yaml:"freshness_window" env:"CARBON_ETL_FRESHNESS_WINDOW"`
	StrictValidation bool               `yaml:"strict_validation" env:"CARBON_ETL_STRICT_VALIDATION"`
}

// Config defines the ETL job configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Load configuration using the shared helper, starting from job defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Upstream: UpstreamConfig{
			IntensityURL:     defaultIntensityURL,
			GenerationMixURL: defaultGenerationMixURL,
			MaxAttempts:      3,
			BackoffBase:      libconfig.Duration(2 * time.Second),
			AttemptTimeout:   libconfig.Duration(10 * time.Second),
		},
		Pipeline: PipelineConfig{
			FreshnessWindow: libconfig.Duration(2 * time.Hour),
		},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if cfg.Upstream.MaxAttempts < 1 {
		return nil, fmt.Errorf("config: max attempts must be positive, got %d", cfg.Upstream.MaxAttempts)
	}
	if cfg.Upstream.BackoffBase <= 0 || cfg.Upstream.AttemptTimeout <= 0 {
		return nil, errors.New("config: backoff base and attempt timeout must be positive")
	}
	if cfg.Pipeline.FreshnessWindow <= 0 {
		return nil, errors.New("config: freshness window must be positive")
	}
	return cfg, nil
}
