// Package core defines the shared contracts of the voice orchestrator: the
// provider adapter interface, the audio object store, and the normalized
// synthesis parameter set every adapter translates from.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// SynthesisParams is the provider-agnostic parameter set accepted on every
// synthesis request. Each adapter translates the subset its provider supports
// and silently drops the rest.
type SynthesisParams struct {
	// Speed is the speaking rate multiplier, 1.0 being the provider default.
	Speed float64
	// Stability trades expressiveness for consistency, in [0.0, 1.0].
	Stability float64
	// Clarity boosts similarity enhancement, in [0.0, 1.0].
	Clarity float64
	// Emotion is a named delivery style (e.g. "neutral", "excited").
	Emotion string
	// Pitch shifts the base pitch in semitones relative to the voice default.
	Pitch float64
}

// VoiceSummary describes one voice as reported by a provider during
// credential validation.
type VoiceSummary struct {
	ID   string
	Name string
}

// ValidationResult is the outcome of checking a secret against a live provider.
type ValidationResult struct {
	Valid  bool
	Voices []VoiceSummary
}

// Adapter is the uniform wrapper around one provider's native API.
//
// Implementations perform no retries; retry and fallback policy belongs to
// the dispatcher. Every failed call returns an error wrapping exactly one of
// the failure sentinels in this package.
type Adapter interface {
	// Name returns the provider identifier used for lookup and persistence.
	Name() string

	// SupportsCloning reports whether Clone is implemented for this provider.
	SupportsCloning() bool

	// Validate checks the secret against the live provider and, when valid,
	// lists the voices available under it.
	Validate(ctx context.Context, secret string) (ValidationResult, error)

	// Synthesize converts text to audio using the provider-native voice id.
	Synthesize(
		ctx context.Context,
		secret string,
		nativeVoiceID string,
		text string,
		params SynthesisParams,
	) ([]byte, error)

	// Clone creates a provider-side voice from an audio sample and returns
	// the provider-native voice id. Providers without cloning return an
	// error wrapping ErrUnsupportedOperation.
	Clone(ctx context.Context, secret, name string, sample []byte) (string, error)
}

// Transcriber converts audio to text. It is the front half of voice
// conversion; synthesis is the back half.
type Transcriber interface {
	Transcribe(ctx context.Context, secret string, audio []byte) (string, error)
}
