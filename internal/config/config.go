// Package config provides the configuration structure for the voice orchestrator.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Defaults applied when the deployment leaves a knob unset.
const (
	defaultMaxTextLength   = 5000
	defaultMaxSampleBytes  = 10 * 1024 * 1024
	defaultProviderTimeout = 60
	defaultRequestPrefix   = "voice"
	defaultAudioBucket     = "VOICE_AUDIO"
	defaultDatabasePath    = "voice-orchestrator.db"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                    string `toml:"url"`
	RequestSubjectPrefix   string `toml:"request_subject_prefix"`
	AudioObjectStoreBucket string `toml:"audio_object_store_bucket"`
}

// StorageConfig holds the configuration for the relational store.
type StorageConfig struct {
	DatabasePath string `toml:"database_path"`
}

// ProvidersConfig holds the provider routing policy for the deployment.
type ProvidersConfig struct {
	// Priority is the auto-mode candidate order, premium providers first.
	Priority []string `toml:"priority"`
	// SharedProvider optionally names the provider served by a shared
	// deployment key when the owner stores no credential of their own.
	SharedProvider string `toml:"shared_provider"`
	SharedSecret   string `toml:"shared_secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// MonthlyCharacterBudgets caps local usage per provider per calendar
	// month; a missing or zero entry means unlimited.
	MonthlyCharacterBudgets map[string]int64 `toml:"monthly_character_budgets"`
}

// SynthesisConfig holds the request validation limits.
type SynthesisConfig struct {
	MaxTextLength int `toml:"max_text_length"`
}

// CloningConfig holds the clone sample limits.
type CloningConfig struct {
	MaxSampleBytes int64 `toml:"max_sample_bytes"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS      NATSConfig      `toml:"nats"`
	Storage   StorageConfig   `toml:"storage"`
	Providers ProvidersConfig `toml:"providers"`
	Synthesis SynthesisConfig `toml:"synthesis"`
	Cloning   CloningConfig   `toml:"cloning"`
	Paths     PathsConfig     `toml:"paths"`
}

// Load loads the configuration for the voice orchestrator and fills in
// defaults for unset knobs.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults fills unset knobs with their deployment defaults.
func (c *Config) ApplyDefaults() {
	if c.NATS.RequestSubjectPrefix == "" {
		c.NATS.RequestSubjectPrefix = defaultRequestPrefix
	}

	if c.NATS.AudioObjectStoreBucket == "" {
		c.NATS.AudioObjectStoreBucket = defaultAudioBucket
	}

	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = defaultDatabasePath
	}

	if c.Providers.TimeoutSeconds <= 0 {
		c.Providers.TimeoutSeconds = defaultProviderTimeout
	}

	if c.Synthesis.MaxTextLength <= 0 {
		c.Synthesis.MaxTextLength = defaultMaxTextLength
	}

	if c.Cloning.MaxSampleBytes <= 0 {
		c.Cloning.MaxSampleBytes = defaultMaxSampleBytes
	}
}
