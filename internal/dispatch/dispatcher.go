// Package dispatch routes synthesis requests: it resolves the voice, orders
// candidate providers, walks the fallback chain, and settles the usage
// ledger after a served response.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/ledger"
	"github.com/book-expert/voice-orchestrator/internal/providers"
	"github.com/book-expert/voice-orchestrator/internal/store"
	"github.com/book-expert/voice-orchestrator/internal/text"
	"github.com/book-expert/voice-orchestrator/internal/voices"
)

// PreferenceAuto selects providers by priority order instead of naming one.
const PreferenceAuto = "auto"

const audioKeySuffix = ".mp3"

// Options carries the deployment policy the dispatcher routes with.
type Options struct {
	// Priority is the auto-mode provider order, premium providers first.
	Priority []string
	// SharedProvider optionally names a provider usable without a stored
	// credential; it is the last auto-mode candidate.
	SharedProvider string
	// SharedSecret authenticates requests served by the shared provider.
	SharedSecret string
	// MaxTextLength caps the normalized request text, in characters.
	MaxTextLength int
}

// Dispatcher is the request-routing brain of the orchestrator.
type Dispatcher struct {
	registry    *providers.Registry
	resolver    *voices.Resolver
	store       store.Store
	ledger      *ledger.Ledger
	audio       core.ObjectStore
	normalizer  *text.Normalizer
	transcriber core.Transcriber
	opts        Options
	log         *logger.Logger
}

// New creates a dispatcher.
func New(
	registry *providers.Registry,
	resolver *voices.Resolver,
	st store.Store,
	usage *ledger.Ledger,
	audio core.ObjectStore,
	transcriber core.Transcriber,
	opts Options,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		resolver:    resolver,
		store:       st,
		ledger:      usage,
		audio:       audio,
		normalizer:  text.NewNormalizer(),
		transcriber: transcriber,
		opts:        opts,
		log:         log,
	}
}

// Request is one synthesis request.
type Request struct {
	OwnerID            string
	Text               string
	VoiceRef           voices.Reference
	ProviderPreference string
	Params             core.SynthesisParams
}

// Result is a served synthesis response. AudioRef is the object store key of
// the generated audio.
type Result struct {
	AudioRef     string
	ProviderUsed string
	Characters   int
	RecordID     string
}

// candidate is one provider the fallback chain may dispatch to.
type candidate struct {
	name   string
	secret string
	shared bool
}

// Generate runs the dispatch algorithm: validate, resolve, order candidates,
// walk the chain, then store the audio and settle the ledger.
func (d *Dispatcher) Generate(ctx context.Context, req Request) (Result, error) {
	var result Result

	normalized, err := d.validateText(req.Text)
	if err != nil {
		return result, err
	}

	resolved, err := d.resolver.Resolve(req.OwnerID, req.VoiceRef)
	if err != nil {
		return result, err
	}

	candidates, err := d.orderCandidates(req.OwnerID, req.ProviderPreference, resolved)
	if err != nil {
		return result, err
	}

	audioData, providerUsed, err := d.walkChain(ctx, req, candidates, resolved, normalized)
	if err != nil {
		return result, err
	}

	return d.settle(ctx, req, normalized, providerUsed, audioData)
}

func (d *Dispatcher) validateText(input string) (string, error) {
	normalized := d.normalizer.Normalize(input)
	if normalized == "" {
		return "", fmt.Errorf("text cannot be empty: %w", core.ErrBadRequest)
	}

	length := len([]rune(normalized))
	if length > d.opts.MaxTextLength {
		return "", fmt.Errorf("text of %d characters exceeds the %d character limit: %w",
			length, d.opts.MaxTextLength, core.ErrBadRequest)
	}

	return normalized, nil
}

// orderCandidates determines the provider order for one request. An explicit
// preference is the only candidate; auto mode ranks the owner's usable
// credentials by the configured priority and appends the shared-key
// provider, and fails fast when no candidate holds a credential for the
// provider that owns the resolved voice.
func (d *Dispatcher) orderCandidates(
	ownerID, preference string, resolved voices.Resolved,
) ([]candidate, error) {
	if preference != "" && preference != PreferenceAuto {
		return d.explicitCandidate(ownerID, preference)
	}

	var candidates []candidate

	for _, name := range d.opts.Priority {
		cred, err := d.store.GetCredential(ownerID, name)
		if err != nil || !cred.IsActive || !cred.IsValid {
			continue
		}

		candidates = append(candidates, candidate{name: name, secret: cred.Secret, shared: false})
	}

	if d.opts.SharedProvider != "" && !containsProvider(candidates, d.opts.SharedProvider) {
		candidates = append(candidates, candidate{
			name:   d.opts.SharedProvider,
			secret: d.opts.SharedSecret,
			shared: true,
		})
	}

	if !containsProvider(candidates, resolved.Provider) {
		return nil, fmt.Errorf(
			"voice belongs to provider '%s' but no usable credential exists for it: %w",
			resolved.Provider, core.ErrCredentialNotFound,
		)
	}

	return candidates, nil
}

func (d *Dispatcher) explicitCandidate(ownerID, preference string) ([]candidate, error) {
	_, err := d.registry.Get(preference)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, core.ErrBadRequest)
	}

	if preference == d.opts.SharedProvider {
		cred, credErr := d.store.GetCredential(ownerID, preference)
		if credErr == nil && cred.IsActive && cred.IsValid {
			return []candidate{{name: preference, secret: cred.Secret, shared: false}}, nil
		}

		return []candidate{{name: preference, secret: d.opts.SharedSecret, shared: true}}, nil
	}

	cred, credErr := d.store.GetCredential(ownerID, preference)
	if credErr != nil {
		return nil, fmt.Errorf("no credential stored for provider '%s': %w",
			preference, core.ErrCredentialNotFound)
	}

	return []candidate{{name: preference, secret: cred.Secret, shared: false}}, nil
}

// walkChain tries each candidate in order. Under an explicit preference the
// chain has one link and every failure surfaces; under auto every failure
// moves to the next link, and the reaction per failure kind follows the
// error taxonomy.
func (d *Dispatcher) walkChain(
	ctx context.Context,
	req Request,
	candidates []candidate,
	resolved voices.Resolved,
	normalized string,
) ([]byte, string, error) {
	auto := req.ProviderPreference == "" || req.ProviderPreference == PreferenceAuto

	var lastErr error

	for _, cand := range candidates {
		audioData, err := d.tryCandidate(ctx, req, cand, resolved, normalized)
		if err == nil {
			return audioData, cand.name, nil
		}

		d.reactToFailure(req.OwnerID, cand, err)

		if !auto {
			return nil, "", err
		}

		lastErr = err
	}

	return nil, "", fmt.Errorf("every candidate provider failed, last error (%v): %w",
		lastErr, core.ErrAllProvidersFailed)
}

// tryCandidate dispatches one provider attempt, preempting the call when the
// local monthly counter already shows the provider exhausted.
func (d *Dispatcher) tryCandidate(
	ctx context.Context,
	req Request,
	cand candidate,
	resolved voices.Resolved,
	normalized string,
) ([]byte, error) {
	exhausted, err := d.ledger.Exhausted(cand.name, time.Now())
	if err != nil {
		return nil, err
	}

	if exhausted {
		return nil, fmt.Errorf("monthly character budget for '%s' is spent: %w",
			cand.name, core.ErrQuotaExceeded)
	}

	adapter, err := d.registry.Get(cand.name)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, core.ErrProviderUnavailable)
	}

	return adapter.Synthesize(ctx, cand.secret, resolved.NativeVoiceID, normalized, req.Params)
}

// reactToFailure applies the side effects a classified failure demands:
// rejected user credentials are invalidated so future auto resolutions skip
// them, and quota exhaustion is signalled for the provider.
func (d *Dispatcher) reactToFailure(ownerID string, cand candidate, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidCredential):
		if cand.shared {
			d.log.Error("shared credential for provider %s was rejected", cand.name)

			return
		}

		invalidateErr := d.store.SetCredentialValidity(ownerID, cand.name, false)
		if invalidateErr != nil {
			d.log.Error("failed to invalidate rejected credential for owner %s, provider %s: %v",
				ownerID, cand.name, invalidateErr)
		}
	case errors.Is(err, core.ErrQuotaExceeded):
		d.log.Warn("quota exhausted for provider %s", cand.name)
	case errors.Is(err, core.ErrProviderUnavailable):
		d.log.Warn("provider %s unavailable: %v", cand.name, err)
	}
}

// settle stores the audio, appends the ledger row, and builds the response.
// The record is written only after the audio is retrievable from the store.
func (d *Dispatcher) settle(
	ctx context.Context,
	req Request,
	normalized string,
	providerUsed string,
	audioData []byte,
) (Result, error) {
	var result Result

	audioKey := uuid.NewString() + audioKeySuffix

	err := d.audio.Upload(ctx, audioKey, audioData)
	if err != nil {
		return result, fmt.Errorf("failed to store generated audio: %w", err)
	}

	record := &store.GenerationRecord{
		ID:              uuid.NewString(),
		OwnerID:         req.OwnerID,
		TextInput:       normalized,
		ProviderUsed:    providerUsed,
		VoiceRef:        req.VoiceRef.String(),
		AudioRef:        audioKey,
		CharactersCount: len([]rune(normalized)),
		CreatedAt:       time.Now().UTC(),
	}

	d.ledger.RecordGeneration(record)

	result.AudioRef = audioKey
	result.ProviderUsed = providerUsed
	result.Characters = record.CharactersCount
	result.RecordID = record.ID

	return result, nil
}

func containsProvider(candidates []candidate, name string) bool {
	for _, cand := range candidates {
		if cand.name == name {
			return true
		}
	}

	return false
}
