package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/providers"
)

func TestOpenAISynthesize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var payload map[string]any

		err := json.NewDecoder(r.Body).Decode(&payload)
		require.NoError(t, err)
		assert.Equal(t, "tts-1", payload["model"])
		assert.Equal(t, "alloy", payload["voice"])
		assert.Equal(t, "good morning", payload["input"])

		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	adapter := providers.NewOpenAI(server.URL, testTimeout, newTestLogger(t))

	audio, err := adapter.Synthesize(
		context.Background(), "sk-test", "alloy", "good morning",
		core.SynthesisParams{Speed: 1.2, Stability: 0, Clarity: 0, Emotion: "", Pitch: 0},
	)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio"), audio)
}

func TestOpenAIValidateReportsFixedVoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	adapter := providers.NewOpenAI(server.URL, testTimeout, newTestLogger(t))

	result, err := adapter.Validate(context.Background(), "sk-test")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Len(t, result.Voices, 5)
}

func TestOpenAIValidateRejectedKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	adapter := providers.NewOpenAI(server.URL, testTimeout, newTestLogger(t))

	result, err := adapter.Validate(context.Background(), "sk-revoked")
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestOpenAICloneUnsupported(t *testing.T) {
	t.Parallel()

	adapter := providers.NewOpenAI("", testTimeout, newTestLogger(t))

	assert.False(t, adapter.SupportsCloning())

	_, err := adapter.Clone(context.Background(), "sk-test", "narrator", []byte("RIFF"))
	require.ErrorIs(t, err, core.ErrUnsupportedOperation)
}
