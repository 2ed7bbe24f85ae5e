// Package credentials manages per-owner, per-provider secrets. It is the
// only component besides the row store that handles raw secret values; every
// outward-facing listing masks them.
package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/providers"
	"github.com/book-expert/voice-orchestrator/internal/store"
)

const secretHintLength = 4

// Service wraps the credential rows with input validation and live provider
// verification.
type Service struct {
	store    store.Store
	registry *providers.Registry
	log      *logger.Logger
}

// NewService creates the credential service.
func NewService(st store.Store, registry *providers.Registry, log *logger.Logger) *Service {
	return &Service{
		store:    st,
		registry: registry,
		log:      log,
	}
}

// Masked is the outward-facing form of a credential. The secret never leaves
// this package whole; only its tail is echoed for recognition.
type Masked struct {
	Provider   string    `json:"provider"`
	SecretHint string    `json:"secret_hint"`
	IsValid    bool      `json:"is_valid"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Get returns the stored credential for the pair.
func (s *Service) Get(ownerID, provider string) (*store.Credential, error) {
	err := validatePair(ownerID, provider)
	if err != nil {
		return nil, err
	}

	cred, err := s.store.GetCredential(ownerID, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get credential for provider '%s': %w", provider, err)
	}

	return cred, nil
}

// Upsert overwrites any existing credential for the pair; the newest save
// always wins and is stored valid and active.
func (s *Service) Upsert(ownerID, provider, secret string) (*store.Credential, error) {
	err := validatePair(ownerID, provider)
	if err != nil {
		return nil, err
	}

	if secret == "" {
		return nil, fmt.Errorf("secret cannot be empty: %w", core.ErrBadRequest)
	}

	cred, err := s.store.UpsertCredential(ownerID, provider, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to save credential for provider '%s': %w", provider, err)
	}

	s.log.Info("Credential saved for owner %s, provider %s", ownerID, provider)

	return cred, nil
}

// Invalidate marks the stored credential invalid without deleting it, so
// auto provider selection skips it until the owner saves a new secret.
func (s *Service) Invalidate(ownerID, provider string) error {
	err := validatePair(ownerID, provider)
	if err != nil {
		return err
	}

	err = s.store.SetCredentialValidity(ownerID, provider, false)
	if err != nil {
		return fmt.Errorf("failed to invalidate credential for provider '%s': %w", provider, err)
	}

	s.log.Warn("Credential invalidated for owner %s, provider %s", ownerID, provider)

	return nil
}

// Delete removes the stored credential for the pair.
func (s *Service) Delete(ownerID, provider string) error {
	err := validatePair(ownerID, provider)
	if err != nil {
		return err
	}

	err = s.store.DeleteCredential(ownerID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete credential for provider '%s': %w", provider, err)
	}

	return nil
}

// List returns the owner's credentials in masked form.
func (s *Service) List(ownerID string) ([]Masked, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id cannot be empty: %w", core.ErrBadRequest)
	}

	rows, err := s.store.ListCredentials(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	masked := make([]Masked, 0, len(rows))
	for _, row := range rows {
		masked = append(masked, Masked{
			Provider:   row.Provider,
			SecretHint: maskSecret(row.Secret),
			IsValid:    row.IsValid,
			IsActive:   row.IsActive,
			UpdatedAt:  row.UpdatedAt,
		})
	}

	return masked, nil
}

// Verify checks the stored secret against the live provider and persists the
// outcome. On success it returns the provider's voice list.
func (s *Service) Verify(ctx context.Context, ownerID, provider string) (core.ValidationResult, error) {
	var result core.ValidationResult

	cred, err := s.Get(ownerID, provider)
	if err != nil {
		return result, err
	}

	adapter, err := s.registry.Get(provider)
	if err != nil {
		return result, fmt.Errorf("%v: %w", err, core.ErrBadRequest)
	}

	result, err = adapter.Validate(ctx, cred.Secret)
	if err != nil {
		return result, fmt.Errorf("failed to validate credential against '%s': %w", provider, err)
	}

	persistErr := s.store.SetCredentialValidity(ownerID, provider, result.Valid)
	if persistErr != nil {
		return result, fmt.Errorf("failed to persist validation outcome: %w", persistErr)
	}

	if !result.Valid {
		return result, fmt.Errorf("provider '%s' rejected the stored secret: %w",
			provider, core.ErrInvalidCredential)
	}

	return result, nil
}

func validatePair(ownerID, provider string) error {
	if ownerID == "" {
		return fmt.Errorf("owner id cannot be empty: %w", core.ErrBadRequest)
	}

	if provider == "" {
		return fmt.Errorf("provider cannot be empty: %w", core.ErrBadRequest)
	}

	return nil
}

func maskSecret(secret string) string {
	if len(secret) <= secretHintLength {
		return "****"
	}

	return "****" + secret[len(secret)-secretHintLength:]
}
