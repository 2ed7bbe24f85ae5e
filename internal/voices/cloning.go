package voices

import (
	"bytes"
	"context"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/providers"
	"github.com/book-expert/voice-orchestrator/internal/store"
)

// CloneWorkflow runs voice cloning: validate the sample, create the record
// in processing, attempt the provider-side clone synchronously, and settle
// the record into ready or failed. Both outcomes are terminal; a failed
// clone stays visible and a retry is a new record.
type CloneWorkflow struct {
	store          store.Store
	registry       *providers.Registry
	priority       []string
	maxSampleBytes int64
	log            *logger.Logger
}

// NewCloneWorkflow creates the workflow. priority is the deployment's
// provider preference order, used when the caller does not name a provider.
func NewCloneWorkflow(
	st store.Store,
	registry *providers.Registry,
	priority []string,
	maxSampleBytes int64,
	log *logger.Logger,
) *CloneWorkflow {
	return &CloneWorkflow{
		store:          st,
		registry:       registry,
		priority:       priority,
		maxSampleBytes: maxSampleBytes,
		log:            log,
	}
}

// StartClone validates the sample, persists the clone record, and runs the
// provider-side clone. Sample validation failures reject the request before
// any record or provider call; failures after the record exists settle it
// into failed with the reason retained.
func (w *CloneWorkflow) StartClone(
	ctx context.Context,
	ownerID, name, description, providerPreference string,
	sample []byte,
) (*store.VoiceClone, error) {
	err := w.validateInputs(ownerID, name, sample)
	if err != nil {
		return nil, err
	}

	clone := &store.VoiceClone{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Name:            name,
		Description:     description,
		Status:          store.CloneStatusProcessing,
		ProviderLocator: "",
		FailureReason:   "",
	}

	err = w.store.CreateVoiceClone(clone)
	if err != nil {
		return nil, fmt.Errorf("failed to create clone record: %w", err)
	}

	nativeVoiceID, provider, cloneErr := w.runProviderClone(
		ctx, ownerID, name, providerPreference, sample,
	)
	if cloneErr != nil {
		w.settleFailed(clone, cloneErr)

		return w.store.GetVoiceClone(ownerID, clone.ID)
	}

	readyErr := w.store.MarkCloneReady(clone.ID, FormatLocator(provider, nativeVoiceID))
	if readyErr != nil {
		return nil, fmt.Errorf("failed to mark clone ready: %w", readyErr)
	}

	w.log.Info("Clone %s ready on provider %s for owner %s", clone.ID, provider, ownerID)

	return w.store.GetVoiceClone(ownerID, clone.ID)
}

// GetClone returns one clone record for status polling.
func (w *CloneWorkflow) GetClone(ownerID, cloneID string) (*store.VoiceClone, error) {
	clone, err := w.store.GetVoiceClone(ownerID, cloneID)
	if err != nil {
		return nil, fmt.Errorf("failed to get clone '%s': %w", cloneID, err)
	}

	return clone, nil
}

// ListClones returns the owner's clone records, newest first.
func (w *CloneWorkflow) ListClones(ownerID string) ([]store.VoiceClone, error) {
	clones, err := w.store.ListVoiceClones(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clones: %w", err)
	}

	return clones, nil
}

func (w *CloneWorkflow) validateInputs(ownerID, name string, sample []byte) error {
	if ownerID == "" {
		return fmt.Errorf("owner id cannot be empty: %w", core.ErrBadRequest)
	}

	if name == "" {
		return fmt.Errorf("clone name cannot be empty: %w", core.ErrBadRequest)
	}

	if len(sample) == 0 {
		return fmt.Errorf("audio sample cannot be empty: %w", core.ErrBadRequest)
	}

	if int64(len(sample)) > w.maxSampleBytes {
		return fmt.Errorf("audio sample of %d bytes exceeds the %d byte ceiling: %w",
			len(sample), w.maxSampleBytes, core.ErrBadRequest)
	}

	if !IsAudioSample(sample) {
		return fmt.Errorf("sample is not a recognized audio format: %w", core.ErrBadRequest)
	}

	return nil
}

// runProviderClone picks the cloning provider and credential, then performs
// the provider-side clone. It returns the provider-native voice id and the
// provider that owns it.
func (w *CloneWorkflow) runProviderClone(
	ctx context.Context,
	ownerID, name, providerPreference string,
	sample []byte,
) (string, string, error) {
	adapter, secret, err := w.pickProvider(ctx, ownerID, providerPreference)
	if err != nil {
		return "", "", err
	}

	nativeVoiceID, err := adapter.Clone(ctx, secret, name, sample)
	if err != nil {
		return "", "", fmt.Errorf("provider '%s' clone failed: %w", adapter.Name(), err)
	}

	return nativeVoiceID, adapter.Name(), nil
}

func (w *CloneWorkflow) pickProvider(
	_ context.Context, ownerID, providerPreference string,
) (core.Adapter, string, error) {
	if providerPreference != "" && providerPreference != "auto" {
		return w.pickExplicit(ownerID, providerPreference)
	}

	for _, name := range w.priority {
		adapter, err := w.registry.Get(name)
		if err != nil || !adapter.SupportsCloning() {
			continue
		}

		cred, credErr := w.store.GetCredential(ownerID, name)
		if credErr != nil || !cred.IsActive || !cred.IsValid {
			continue
		}

		return adapter, cred.Secret, nil
	}

	return nil, "", fmt.Errorf(
		"no provider with cloning support holds a valid credential: %w",
		core.ErrUnsupportedOperation,
	)
}

func (w *CloneWorkflow) pickExplicit(ownerID, provider string) (core.Adapter, string, error) {
	adapter, err := w.registry.Get(provider)
	if err != nil {
		return nil, "", fmt.Errorf("%v: %w", err, core.ErrBadRequest)
	}

	if !adapter.SupportsCloning() {
		return nil, "", fmt.Errorf("provider '%s' does not support cloning: %w",
			provider, core.ErrUnsupportedOperation)
	}

	cred, credErr := w.store.GetCredential(ownerID, provider)
	if credErr != nil {
		return nil, "", fmt.Errorf("no credential for cloning provider '%s': %w",
			provider, core.ErrCredentialNotFound)
	}

	return adapter, cred.Secret, nil
}

// settleFailed moves the record to failed, retaining a short reason for
// display. A failure to settle is logged; the record stays in processing and
// remains visible.
func (w *CloneWorkflow) settleFailed(clone *store.VoiceClone, cause error) {
	w.log.Warn("Clone %s failed for owner %s: %v", clone.ID, clone.OwnerID, cause)

	err := w.store.MarkCloneFailed(clone.ID, cause.Error())
	if err != nil {
		w.log.Error("Failed to settle clone %s into failed state: %v", clone.ID, err)
	}
}

// Audio container magic numbers accepted for clone samples.
var audioMagics = [][]byte{
	[]byte("RIFF"), // wav
	[]byte("OggS"), // ogg
	[]byte("fLaC"), // flac
	[]byte("ID3"),  // mp3 with tag header
}

// IsAudioSample reports whether the payload starts like a supported audio
// container. Detection is by magic bytes only; providers do the real parsing.
func IsAudioSample(sample []byte) bool {
	for _, magic := range audioMagics {
		if bytes.HasPrefix(sample, magic) {
			return true
		}
	}

	// Raw MPEG audio frame sync.
	if len(sample) >= 2 && sample[0] == 0xFF && sample[1]&0xE0 == 0xE0 {
		return true
	}

	// MP4/M4A: "ftyp" after the box length.
	if len(sample) >= 8 && bytes.Equal(sample[4:8], []byte("ftyp")) {
		return true
	}

	return false
}
