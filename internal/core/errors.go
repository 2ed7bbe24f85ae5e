package core

import (
	"errors"
	"net/http"
)

// Failure sentinels. Every provider call, resolution step, and request
// validation failure wraps exactly one of these so callers can classify with
// errors.Is instead of matching message text.
var (
	// ErrBadRequest indicates a caller error: bad text, voice, or file.
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidCredential indicates the stored secret was rejected by the provider.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrQuotaExceeded indicates a provider-side usage limit was hit.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrProviderUnavailable indicates a transient transport or 5xx failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrUnsupportedOperation indicates the provider cannot perform the operation.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrVoiceNotFound indicates the voice reference resolves to nothing.
	ErrVoiceNotFound = errors.New("voice not found")
	// ErrVoiceNotReady indicates a cloned voice has not finished processing.
	ErrVoiceNotReady = errors.New("voice not ready")
	// ErrAllProvidersFailed indicates every candidate provider was exhausted.
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrCredentialNotFound indicates no credential row exists for the pair.
	ErrCredentialNotFound = errors.New("credential not found")
)

// Retryable reports whether the dispatcher may continue to the next candidate
// provider after this failure under auto selection. Caller and resolver
// errors are terminal regardless of remaining candidates.
func Retryable(err error) bool {
	return errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrProviderUnavailable)
}

// StatusFor maps a classified failure to its HTTP-equivalent status code for
// reply payloads. Caller-input errors map to 4xx, provider and infrastructure
// errors to 5xx-range codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrVoiceNotFound), errors.Is(err, ErrCredentialNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrVoiceNotReady):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnsupportedOperation):
		return http.StatusNotImplemented
	case errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrAllProvidersFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// KindFor returns the machine-readable error kind carried in reply payloads.
func KindFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrUnsupportedOperation):
		return "unsupported_operation"
	case errors.Is(err, ErrVoiceNotFound):
		return "voice_not_found"
	case errors.Is(err, ErrVoiceNotReady):
		return "voice_not_ready"
	case errors.Is(err, ErrAllProvidersFailed):
		return "all_providers_failed"
	case errors.Is(err, ErrCredentialNotFound):
		return "credential_not_found"
	default:
		return "internal"
	}
}
