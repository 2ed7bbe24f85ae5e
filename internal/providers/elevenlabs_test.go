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

func TestElevenLabsSynthesize(t *testing.T) {
	t.Parallel()

	wantAudio := []byte("mp3-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/text-to-speech/voice-123", r.URL.Path)
		assert.Equal(t, "key-abc", r.Header.Get("xi-api-key"))

		var payload map[string]any

		err := json.NewDecoder(r.Body).Decode(&payload)
		require.NoError(t, err)
		assert.Equal(t, "hello there", payload["text"])
		assert.Equal(t, "eleven_multilingual_v2", payload["model_id"])

		_, _ = w.Write(wantAudio)
	}))
	defer server.Close()

	adapter := providers.NewElevenLabs(server.URL, testTimeout, newTestLogger(t))

	audio, err := adapter.Synthesize(
		context.Background(), "key-abc", "voice-123", "hello there",
		core.SynthesisParams{Speed: 1.0, Stability: 0.5, Clarity: 0.75, Emotion: "", Pitch: 0},
	)
	require.NoError(t, err)
	assert.Equal(t, wantAudio, audio)
}

func TestElevenLabsSynthesizeClassifiesFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{name: "unauthorized", statusCode: http.StatusUnauthorized, wantErr: core.ErrInvalidCredential},
		{name: "payment required", statusCode: http.StatusPaymentRequired, wantErr: core.ErrQuotaExceeded},
		{name: "rate limited", statusCode: http.StatusTooManyRequests, wantErr: core.ErrQuotaExceeded},
		{name: "server error", statusCode: http.StatusInternalServerError, wantErr: core.ErrProviderUnavailable},
		{name: "unprocessable", statusCode: http.StatusUnprocessableEntity, wantErr: core.ErrBadRequest},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(
				func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(testCase.statusCode)
					_, _ = w.Write([]byte(`{"detail":"provider internals"}`))
				},
			))
			defer server.Close()

			adapter := providers.NewElevenLabs(server.URL, testTimeout, newTestLogger(t))

			_, err := adapter.Synthesize(
				context.Background(), "key", "voice", "text", core.SynthesisParams{},
			)
			require.ErrorIs(t, err, testCase.wantErr)
			// Provider error bodies are logged, never echoed to callers.
			assert.NotContains(t, err.Error(), "provider internals")
		})
	}
}

func TestElevenLabsSynthesizeRejectsEmptyAudio(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := providers.NewElevenLabs(server.URL, testTimeout, newTestLogger(t))

	_, err := adapter.Synthesize(context.Background(), "key", "voice", "text", core.SynthesisParams{})
	require.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestElevenLabsValidate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/voices", r.URL.Path)

		_, _ = w.Write([]byte(`{"voices":[{"voice_id":"v1","name":"Rachel"}]}`))
	}))
	defer server.Close()

	adapter := providers.NewElevenLabs(server.URL, testTimeout, newTestLogger(t))

	result, err := adapter.Validate(context.Background(), "key")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.Len(t, result.Voices, 1)
	assert.Equal(t, "v1", result.Voices[0].ID)
	assert.Equal(t, "Rachel", result.Voices[0].Name)
}

func TestElevenLabsValidateRejectedKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := providers.NewElevenLabs(server.URL, testTimeout, newTestLogger(t))

	result, err := adapter.Validate(context.Background(), "bad-key")
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestElevenLabsClone(t *testing.T) {
	t.Parallel()

	sample := []byte("RIFFxxxxWAVE")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/voices/add", r.URL.Path)

		err := r.ParseMultipartForm(1 << 20)
		require.NoError(t, err)
		assert.Equal(t, "narrator", r.FormValue("name"))

		file, _, err := r.FormFile("files")
		require.NoError(t, err)
		defer file.Close()

		_, _ = w.Write([]byte(`{"voice_id":"cloned-42"}`))
	}))
	defer server.Close()

	adapter := providers.NewElevenLabs(server.URL, testTimeout, newTestLogger(t))

	voiceID, err := adapter.Clone(context.Background(), "key", "narrator", sample)
	require.NoError(t, err)
	assert.Equal(t, "cloned-42", voiceID)
}
