package core_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/voice-orchestrator/internal/core"
)

func TestRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, core.Retryable(core.ErrInvalidCredential))
	assert.True(t, core.Retryable(core.ErrQuotaExceeded))
	assert.True(t, core.Retryable(core.ErrProviderUnavailable))

	assert.False(t, core.Retryable(core.ErrBadRequest))
	assert.False(t, core.Retryable(core.ErrVoiceNotFound))
	assert.False(t, core.Retryable(core.ErrUnsupportedOperation))
	assert.False(t, core.Retryable(errors.New("unclassified")))
}

func TestRetryableSeesThroughWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("elevenlabs returned HTTP 429: %w", core.ErrQuotaExceeded)
	assert.True(t, core.Retryable(wrapped))
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusOK, core.StatusFor(nil))
	assert.Equal(t, http.StatusBadRequest, core.StatusFor(core.ErrBadRequest))
	assert.Equal(t, http.StatusNotFound, core.StatusFor(core.ErrVoiceNotFound))
	assert.Equal(t, http.StatusNotFound, core.StatusFor(core.ErrCredentialNotFound))
	assert.Equal(t, http.StatusConflict, core.StatusFor(core.ErrVoiceNotReady))
	assert.Equal(t, http.StatusUnauthorized, core.StatusFor(core.ErrInvalidCredential))
	assert.Equal(t, http.StatusTooManyRequests, core.StatusFor(core.ErrQuotaExceeded))
	assert.Equal(t, http.StatusNotImplemented, core.StatusFor(core.ErrUnsupportedOperation))
	assert.Equal(t, http.StatusBadGateway, core.StatusFor(core.ErrProviderUnavailable))
	assert.Equal(t, http.StatusBadGateway, core.StatusFor(core.ErrAllProvidersFailed))
	assert.Equal(t, http.StatusInternalServerError, core.StatusFor(errors.New("boom")))
}

func TestKindFor(t *testing.T) {
	t.Parallel()

	assert.Empty(t, core.KindFor(nil))
	assert.Equal(t, "quota_exceeded", core.KindFor(core.ErrQuotaExceeded))
	assert.Equal(t, "invalid_credential", core.KindFor(core.ErrInvalidCredential))
	assert.Equal(t, "internal", core.KindFor(errors.New("boom")))
}
