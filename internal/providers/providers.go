// Package providers contains one adapter per supported speech provider and
// the registry the dispatcher looks them up in.
//
// Adapters translate the shared synthesis parameter set into whatever the
// target provider accepts (dropping the rest), classify every provider
// failure into the core taxonomy, and never retry; retry and fallback policy
// belongs to the dispatcher.
package providers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-orchestrator/internal/core"
)

// Provider name constants. The set is closed; there is no plugin mechanism.
const (
	NameElevenLabs = "elevenlabs"
	NameOpenAI     = "openai"
	NamePlayHT     = "playht"
	NameFishAudio  = "fishaudio"
)

// HTTP headers and content types shared by the adapters.
const (
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "
)

// ErrUnknownProvider indicates a lookup for a provider name outside the
// closed set.
var ErrUnknownProvider = errors.New("unknown provider")

// Registry holds the configured adapters keyed by provider name.
type Registry struct {
	adapters map[string]core.Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...core.Adapter) *Registry {
	byName := make(map[string]core.Adapter, len(adapters))
	for _, adapter := range adapters {
		byName[adapter.Name()] = adapter
	}

	return &Registry{adapters: byName}
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (core.Adapter, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownProvider, name)
	}

	return adapter, nil
}

// Names returns every registered provider name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// classifyStatus maps a non-success HTTP status to the failure taxonomy.
// The response body is for the caller to log; it is never part of the
// returned error so provider internals cannot leak to API callers.
func classifyStatus(provider string, statusCode int) error {
	var kind error

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		kind = core.ErrInvalidCredential
	case statusCode == http.StatusPaymentRequired || statusCode == http.StatusTooManyRequests:
		kind = core.ErrQuotaExceeded
	case statusCode >= http.StatusInternalServerError:
		kind = core.ErrProviderUnavailable
	default:
		kind = core.ErrBadRequest
	}

	return fmt.Errorf("%s returned HTTP %d: %w", provider, statusCode, kind)
}

// classifyTransportError wraps a transport-level failure (connection refused,
// timeout, cancelled context) as provider unavailability.
func classifyTransportError(provider string, err error) error {
	return fmt.Errorf("request to %s failed (%v): %w", provider, err, core.ErrProviderUnavailable)
}

// drainError reads and logs the error body of a failed response, then
// classifies the status. Bodies are logged, not echoed to callers.
func drainError(log *logger.Logger, provider string, resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr == nil && len(body) > 0 {
		log.Warn("%s error response (HTTP %d): %s", provider, resp.StatusCode, string(body))
	}

	return classifyStatus(provider, resp.StatusCode)
}

// readAudioBody reads a success response and rejects empty payloads.
func readAudioBody(provider string, resp *http.Response) ([]byte, error) {
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio from %s: %w", provider, err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("%s returned empty audio: %w", provider, core.ErrProviderUnavailable)
	}

	return audioData, nil
}
