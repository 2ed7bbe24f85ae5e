// Package voices resolves logical voice references to provider-native voice
// ids and runs the voice cloning workflow that produces cloned references.
package voices

import (
	"fmt"
	"strings"

	"github.com/book-expert/voice-orchestrator/internal/catalog"
	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/store"
)

// ClonePrefix marks the raw string form of a cloned-voice reference.
const ClonePrefix = "clone_"

const locatorSeparator = ":"

// Reference is the tagged form of a caller-supplied voice reference. It is
// constructed once at the API boundary; nothing downstream re-parses the raw
// string.
type Reference struct {
	cloneID  string
	nativeID string
	raw      string
}

// ParseReference classifies a raw voice reference string.
func ParseReference(raw string) Reference {
	if cloneID, ok := strings.CutPrefix(raw, ClonePrefix); ok {
		return Reference{cloneID: cloneID, nativeID: "", raw: raw}
	}

	return Reference{cloneID: "", nativeID: raw, raw: raw}
}

// IsClone reports whether the reference points at a cloned voice.
func (r Reference) IsClone() bool { return r.cloneID != "" }

// String returns the raw form, which is what the ledger persists.
func (r Reference) String() string { return r.raw }

// Resolved is the (provider, provider-native voice id) pair a reference
// resolves to. It is the only way the rest of the system learns which
// provider owns a voice.
type Resolved struct {
	Provider      string
	NativeVoiceID string
}

// Resolver turns voice references into resolved provider voices.
type Resolver struct {
	store store.Store
}

// NewResolver creates a resolver over the clone registry and static catalog.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Resolve resolves ref for ownerID. Cloned references resolve through the
// owner's clone rows; anything else is a catalog lookup.
func (r *Resolver) Resolve(ownerID string, ref Reference) (Resolved, error) {
	if ref.raw == "" {
		return Resolved{}, fmt.Errorf("voice reference cannot be empty: %w", core.ErrBadRequest)
	}

	if ref.IsClone() {
		return r.resolveClone(ownerID, ref.cloneID)
	}

	entry, ok := catalog.Lookup(ref.nativeID)
	if !ok {
		return Resolved{}, fmt.Errorf("no catalog voice '%s': %w", ref.nativeID, core.ErrVoiceNotFound)
	}

	return Resolved{Provider: entry.Provider, NativeVoiceID: entry.NativeID}, nil
}

func (r *Resolver) resolveClone(ownerID, cloneID string) (Resolved, error) {
	clone, err := r.store.GetVoiceClone(ownerID, cloneID)
	if err != nil {
		return Resolved{}, fmt.Errorf("failed to look up clone '%s': %w", cloneID, err)
	}

	if clone.Status != store.CloneStatusReady {
		return Resolved{}, fmt.Errorf("clone '%s' has status '%s': %w",
			cloneID, clone.Status, core.ErrVoiceNotReady)
	}

	provider, nativeID, err := ParseLocator(clone.ProviderLocator)
	if err != nil {
		return Resolved{}, err
	}

	return Resolved{Provider: provider, NativeVoiceID: nativeID}, nil
}

// FormatLocator builds the opaque provider locator persisted on ready clones.
func FormatLocator(provider, nativeVoiceID string) string {
	return provider + locatorSeparator + nativeVoiceID
}

// ParseLocator splits a provider locator back into its parts.
func ParseLocator(locator string) (string, string, error) {
	provider, nativeVoiceID, ok := strings.Cut(locator, locatorSeparator)
	if !ok || provider == "" || nativeVoiceID == "" {
		return "", "", fmt.Errorf("malformed provider locator '%s': %w",
			locator, core.ErrVoiceNotFound)
	}

	return provider, nativeVoiceID, nil
}
