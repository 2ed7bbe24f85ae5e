// Package store abstracts persistence for credentials, cloned voices,
// generation history, and quota counters.
package store

import (
	"errors"
	"time"
)

// ErrRecordNotFound indicates a generation record lookup matched no row.
var ErrRecordNotFound = errors.New("generation record not found")

// Clone status values. A clone starts in processing and moves exactly once to
// ready or failed; both are terminal.
const (
	CloneStatusProcessing = "processing"
	CloneStatusReady      = "ready"
	CloneStatusFailed     = "failed"
)

// Credential is one owner's secret for one provider. The store is the only
// component that reads or writes Secret.
type Credential struct {
	OwnerID   string
	Provider  string
	Secret    string
	IsValid   bool
	IsActive  bool
	UpdatedAt time.Time
}

// VoiceClone is a user-initiated voice cloning request and its outcome.
// ProviderLocator is set exactly when Status is ready.
type VoiceClone struct {
	ID              string
	OwnerID         string
	Name            string
	Description     string
	Status          string
	ProviderLocator string
	FailureReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GenerationRecord is one append-only usage ledger row. A row exists for
// every attempt that reached a provider and produced retrievable audio.
type GenerationRecord struct {
	ID              string
	OwnerID         string
	TextInput       string
	ProviderUsed    string
	VoiceRef        string
	AudioRef        string
	CharactersCount int
	CreatedAt       time.Time
}

// QuotaCounter accumulates usage per provider per calendar month.
type QuotaCounter struct {
	Provider       string
	MonthKey       string
	CharactersUsed int64
	RequestsCount  int64
}

// Store abstracts persistence for the orchestrator's durable state.
type Store interface {
	// Credentials
	GetCredential(ownerID, provider string) (*Credential, error)
	UpsertCredential(ownerID, provider, secret string) (*Credential, error)
	SetCredentialValidity(ownerID, provider string, valid bool) error
	DeleteCredential(ownerID, provider string) error
	ListCredentials(ownerID string) ([]Credential, error)

	// Voice clones
	CreateVoiceClone(clone *VoiceClone) error
	GetVoiceClone(ownerID, cloneID string) (*VoiceClone, error)
	ListVoiceClones(ownerID string) ([]VoiceClone, error)
	MarkCloneReady(cloneID, providerLocator string) error
	MarkCloneFailed(cloneID, reason string) error

	// Usage ledger
	InsertGenerationRecord(record *GenerationRecord) error
	GetGenerationRecord(ownerID, recordID string) (*GenerationRecord, error)
	ListGenerationRecords(ownerID string, limit int) ([]GenerationRecord, error)
	DeleteGenerationRecord(ownerID, recordID string) error

	// Quota counters
	IncrementQuota(provider, monthKey string, characters int64) error
	GetQuota(provider, monthKey string) (QuotaCounter, error)

	Close() error
}
