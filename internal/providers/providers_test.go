// Package providers_test tests the provider registry and adapters against
// local HTTP servers standing in for the real APIs.
package providers_test

import (
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-orchestrator/internal/providers"
)

const testTimeout = 5 * time.Second

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		closeErr := log.Close()
		if closeErr != nil {
			t.Errorf("failed to close logger: %v", closeErr)
		}
	})

	return log
}

func TestRegistryGet(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)
	registry := providers.NewRegistry(
		providers.NewElevenLabs("", testTimeout, log),
		providers.NewOpenAI("", testTimeout, log),
	)

	adapter, err := registry.Get(providers.NameOpenAI)
	require.NoError(t, err)
	assert.Equal(t, providers.NameOpenAI, adapter.Name())

	_, err = registry.Get("acme-voice")
	require.ErrorIs(t, err, providers.ErrUnknownProvider)
}

func TestRegistryNamesSorted(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)
	registry := providers.NewRegistry(
		providers.NewPlayHT("", testTimeout, log),
		providers.NewElevenLabs("", testTimeout, log),
		providers.NewFishAudio("", testTimeout, log),
	)

	assert.Equal(t, []string{
		providers.NameElevenLabs,
		providers.NameFishAudio,
		providers.NamePlayHT,
	}, registry.Names())
}
