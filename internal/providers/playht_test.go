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

func TestPlayHTSynthesizeSendsBothAuthHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/tts/stream", r.URL.Path)
		assert.Equal(t, "api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "user-1", r.Header.Get("X-User-Id"))

		var payload map[string]any

		err := json.NewDecoder(r.Body).Decode(&payload)
		require.NoError(t, err)
		assert.Equal(t, "PlayHT2.0", payload["voice_engine"])
		assert.Equal(t, "larry", payload["voice"])
		assert.Equal(t, "excited", payload["emotion"])

		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	adapter := providers.NewPlayHT(server.URL, testTimeout, newTestLogger(t))

	audio, err := adapter.Synthesize(
		context.Background(), "user-1:api-key", "larry", "hi",
		core.SynthesisParams{Speed: 1.0, Stability: 0, Clarity: 0, Emotion: "excited", Pitch: 0},
	)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio"), audio)
}

func TestPlayHTMalformedSecret(t *testing.T) {
	t.Parallel()

	adapter := providers.NewPlayHT("", testTimeout, newTestLogger(t))

	_, err := adapter.Synthesize(
		context.Background(), "just-a-key", "larry", "hi", core.SynthesisParams{},
	)
	require.ErrorIs(t, err, core.ErrInvalidCredential)

	// Validation treats the malformed secret as a rejected credential.
	result, err := adapter.Validate(context.Background(), "just-a-key")
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestPlayHTCloneAcceptsCreated(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/cloned-voices/instant", r.URL.Path)

		err := r.ParseMultipartForm(1 << 20)
		require.NoError(t, err)
		assert.Equal(t, "narrator", r.FormValue("voice_name"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"s3://voice-cloning/abc"}`))
	}))
	defer server.Close()

	adapter := providers.NewPlayHT(server.URL, testTimeout, newTestLogger(t))

	voiceID, err := adapter.Clone(context.Background(), "user-1:api-key", "narrator", []byte("RIFF"))
	require.NoError(t, err)
	assert.Equal(t, "s3://voice-cloning/abc", voiceID)
}
