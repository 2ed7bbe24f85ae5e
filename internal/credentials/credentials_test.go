package credentials_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/credentials"
	"github.com/book-expert/voice-orchestrator/internal/providers"
	"github.com/book-expert/voice-orchestrator/internal/store"
)

func newTestService(t *testing.T, elevenLabsURL string) (*credentials.Service, *store.SQLiteStore) {
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

	registry := providers.NewRegistry(
		providers.NewElevenLabs(elevenLabsURL, 5*time.Second, log),
	)

	return credentials.NewService(st, registry, log), st
}

func TestUpsertRejectsEmptyInputs(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t, "")

	_, err := service.Upsert("", "elevenlabs", "secret")
	require.ErrorIs(t, err, core.ErrBadRequest)

	_, err = service.Upsert("owner-1", "", "secret")
	require.ErrorIs(t, err, core.ErrBadRequest)

	_, err = service.Upsert("owner-1", "elevenlabs", "")
	require.ErrorIs(t, err, core.ErrBadRequest)
}

func TestListMasksSecrets(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t, "")

	_, err := service.Upsert("owner-1", "elevenlabs", "sk-super-secret-1234")
	require.NoError(t, err)

	masked, err := service.List("owner-1")
	require.NoError(t, err)
	require.Len(t, masked, 1)
	assert.Equal(t, "****1234", masked[0].SecretHint)
	assert.True(t, masked[0].IsValid)
	assert.True(t, masked[0].IsActive)
}

func TestListMasksShortSecretsEntirely(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t, "")

	_, err := service.Upsert("owner-1", "elevenlabs", "abc")
	require.NoError(t, err)

	masked, err := service.List("owner-1")
	require.NoError(t, err)
	require.Len(t, masked, 1)
	assert.Equal(t, "****", masked[0].SecretHint)
}

func TestVerifyPersistsValidOutcome(t *testing.T) {
	t.Parallel()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"voices":[{"voice_id":"v1","name":"Rachel"}]}`))
	}))
	defer apiServer.Close()

	service, st := newTestService(t, apiServer.URL)

	_, err := service.Upsert("owner-1", "elevenlabs", "good-key")
	require.NoError(t, err)

	result, err := service.Verify(context.Background(), "owner-1", "elevenlabs")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.Len(t, result.Voices, 1)

	cred, err := st.GetCredential("owner-1", "elevenlabs")
	require.NoError(t, err)
	assert.True(t, cred.IsValid)
}

func TestVerifyPersistsRejectedOutcome(t *testing.T) {
	t.Parallel()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer apiServer.Close()

	service, st := newTestService(t, apiServer.URL)

	_, err := service.Upsert("owner-1", "elevenlabs", "revoked-key")
	require.NoError(t, err)

	_, err = service.Verify(context.Background(), "owner-1", "elevenlabs")
	require.ErrorIs(t, err, core.ErrInvalidCredential)

	cred, err := st.GetCredential("owner-1", "elevenlabs")
	require.NoError(t, err)
	assert.False(t, cred.IsValid)

	// A fresh save resets validity.
	saved, err := service.Upsert("owner-1", "elevenlabs", "new-key")
	require.NoError(t, err)
	assert.True(t, saved.IsValid)
}

func TestVerifyMissingCredential(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t, "")

	_, err := service.Verify(context.Background(), "owner-1", "elevenlabs")
	require.ErrorIs(t, err, core.ErrCredentialNotFound)
}

func TestDeleteMissingCredential(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t, "")

	err := service.Delete("owner-1", "elevenlabs")
	require.ErrorIs(t, err, core.ErrCredentialNotFound)
}
