package dispatch_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/dispatch"
	"github.com/book-expert/voice-orchestrator/internal/ledger"
	"github.com/book-expert/voice-orchestrator/internal/providers"
	"github.com/book-expert/voice-orchestrator/internal/store"
	"github.com/book-expert/voice-orchestrator/internal/voices"
)

// scriptedTranscriber is a core.Transcriber with a fixed outcome.
type scriptedTranscriber struct {
	text       string
	err        error
	lastSecret string
}

func (s *scriptedTranscriber) Transcribe(_ context.Context, secret string, _ []byte) (string, error) {
	s.lastSecret = secret

	if s.err != nil {
		return "", s.err
	}

	return s.text, nil
}

func newConvertFixture(
	t *testing.T,
	opts dispatch.Options,
	transcriber core.Transcriber,
	adapters ...core.Adapter,
) *fixture {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		closeErr := st.Close()
		if closeErr != nil {
			t.Errorf("failed to close store: %v", closeErr)
		}
	})

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		closeErr := log.Close()
		if closeErr != nil {
			t.Errorf("failed to close logger: %v", closeErr)
		}
	})

	if opts.MaxTextLength == 0 {
		opts.MaxTextLength = 5000
	}

	registry := providers.NewRegistry(adapters...)
	audio := newMemoryObjectStore()
	usage := ledger.New(st, audio, nil, log)
	resolver := voices.NewResolver(st)

	dispatcher := dispatch.New(registry, resolver, st, usage, audio, transcriber, opts, log)

	return &fixture{dispatcher: dispatcher, store: st, audio: audio}
}

func convertRequest(voice string) dispatch.ConvertRequest {
	return dispatch.ConvertRequest{
		OwnerID:            "owner-1",
		Audio:              []byte("RIFFxxxxWAVEdata"),
		TargetVoiceRef:     voices.ParseReference(voice),
		ProviderPreference: "auto",
		Params:             core.SynthesisParams{Speed: 1.0, Stability: 0, Clarity: 0, Emotion: "", Pitch: 0},
	}
}

func TestConvertTranscribesThenSynthesizes(t *testing.T) {
	t.Parallel()

	transcriber := &scriptedTranscriber{text: "spoken words"}
	adapter := &scriptedAdapter{name: "openai", audio: []byte("mp3")}

	fix := newConvertFixture(t, dispatch.Options{Priority: []string{"openai"}}, transcriber, adapter)

	_, err := fix.store.UpsertCredential("owner-1", "openai", "sk-own")
	require.NoError(t, err)

	result, err := fix.dispatcher.Convert(context.Background(), convertRequest("alloy"))
	require.NoError(t, err)
	assert.Equal(t, "spoken words", result.Transcription)
	assert.Equal(t, "openai", result.ProviderUsed)
	assert.Equal(t, "sk-own", transcriber.lastSecret)

	record, err := fix.store.GetGenerationRecord("owner-1", result.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "spoken words", record.TextInput)
}

func TestConvertUsesSharedSecretForTranscription(t *testing.T) {
	t.Parallel()

	transcriber := &scriptedTranscriber{text: "spoken words"}
	adapter := &scriptedAdapter{name: "openai", audio: []byte("mp3")}

	fix := newConvertFixture(t, dispatch.Options{
		Priority:       []string{"openai"},
		SharedProvider: "openai",
		SharedSecret:   "sk-shared",
	}, transcriber, adapter)

	result, err := fix.dispatcher.Convert(context.Background(), convertRequest("alloy"))
	require.NoError(t, err)
	assert.Equal(t, "sk-shared", transcriber.lastSecret)
	assert.Equal(t, "openai", result.ProviderUsed)
}

func TestConvertWithoutTranscriptionCredential(t *testing.T) {
	t.Parallel()

	transcriber := &scriptedTranscriber{text: "spoken words"}
	adapter := &scriptedAdapter{name: "elevenlabs", audio: []byte("mp3")}

	fix := newConvertFixture(t, dispatch.Options{Priority: []string{"elevenlabs"}}, transcriber, adapter)

	_, err := fix.store.UpsertCredential("owner-1", "elevenlabs", "el-key")
	require.NoError(t, err)

	_, err = fix.dispatcher.Convert(context.Background(), convertRequest("21m00Tcm4TlvDq8ikWAM"))
	require.ErrorIs(t, err, core.ErrCredentialNotFound)
}

func TestConvertRejectsNonAudioPayload(t *testing.T) {
	t.Parallel()

	transcriber := &scriptedTranscriber{text: "spoken words"}
	fix := newConvertFixture(t, dispatch.Options{Priority: nil}, transcriber)

	req := convertRequest("alloy")
	req.Audio = []byte("definitely not audio")

	_, err := fix.dispatcher.Convert(context.Background(), req)
	require.ErrorIs(t, err, core.ErrBadRequest)
}

func TestConvertSurfacesTranscriptionFailure(t *testing.T) {
	t.Parallel()

	transcriber := &scriptedTranscriber{
		err: fmt.Errorf("transcription service returned HTTP 503: %w", core.ErrProviderUnavailable),
	}
	adapter := &scriptedAdapter{name: "openai", audio: []byte("mp3")}

	fix := newConvertFixture(t, dispatch.Options{
		Priority:       []string{"openai"},
		SharedProvider: "openai",
		SharedSecret:   "sk-shared",
	}, transcriber, adapter)

	_, err := fix.dispatcher.Convert(context.Background(), convertRequest("alloy"))
	require.ErrorIs(t, err, core.ErrProviderUnavailable)
}
