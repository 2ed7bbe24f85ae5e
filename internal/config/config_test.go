// Package config_test tests the configuration loading for the voice orchestrator.
package config_test

import (
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-orchestrator/internal/config"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[nats]
url = "nats://127.0.0.1:4222"
request_subject_prefix = "voice"
audio_object_store_bucket = "VOICE_AUDIO"

[storage]
database_path = "/var/lib/voice/orchestrator.db"

[providers]
priority = ["elevenlabs", "playht", "openai"]
shared_provider = "openai"
shared_secret = "sk-shared"
timeout_seconds = 45

[providers.monthly_character_budgets]
elevenlabs = 100000
playht = 50000

[synthesis]
max_text_length = 4000

[cloning]
max_sample_bytes = 5242880

[paths]
base_logs_dir = "/var/log/voice"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "voice", cfg.NATS.RequestSubjectPrefix)
	assert.Equal(t, "VOICE_AUDIO", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, "/var/lib/voice/orchestrator.db", cfg.Storage.DatabasePath)
	assert.Equal(t, []string{"elevenlabs", "playht", "openai"}, cfg.Providers.Priority)
	assert.Equal(t, "openai", cfg.Providers.SharedProvider)
	assert.Equal(t, "sk-shared", cfg.Providers.SharedSecret)
	assert.Equal(t, 45, cfg.Providers.TimeoutSeconds)
	assert.Equal(t, int64(100000), cfg.Providers.MonthlyCharacterBudgets["elevenlabs"])
	assert.Equal(t, int64(50000), cfg.Providers.MonthlyCharacterBudgets["playht"])
	assert.Equal(t, 4000, cfg.Synthesis.MaxTextLength)
	assert.Equal(t, int64(5242880), cfg.Cloning.MaxSampleBytes)
	assert.Equal(t, "/var/log/voice", cfg.Paths.BaseLogsDir)
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	cfg.ApplyDefaults()

	assert.Equal(t, "voice", cfg.NATS.RequestSubjectPrefix)
	assert.Equal(t, "VOICE_AUDIO", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, "voice-orchestrator.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 60, cfg.Providers.TimeoutSeconds)
	assert.Equal(t, 5000, cfg.Synthesis.MaxTextLength)
	assert.Equal(t, int64(10*1024*1024), cfg.Cloning.MaxSampleBytes)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	cfg.Synthesis.MaxTextLength = 1234
	cfg.Providers.TimeoutSeconds = 5

	cfg.ApplyDefaults()

	assert.Equal(t, 1234, cfg.Synthesis.MaxTextLength)
	assert.Equal(t, 5, cfg.Providers.TimeoutSeconds)
}
