// Package ledger persists generation history and the per-provider monthly
// quota counters the dispatcher consults before contacting a provider.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Ledger wraps the usage tables with the orchestrator's bookkeeping rules.
type Ledger struct {
	store  store.Store
	audio  core.ObjectStore
	limits map[string]int64
	log    *logger.Logger
}

// New creates a ledger. limits maps provider name to the deployment's
// monthly character budget; a missing or zero entry means unlimited.
func New(st store.Store, audio core.ObjectStore, limits map[string]int64, log *logger.Logger) *Ledger {
	return &Ledger{
		store:  st,
		audio:  audio,
		limits: limits,
		log:    log,
	}
}

// RecordGeneration appends the ledger row and bumps the quota counter for a
// generation whose audio has already been returned to the caller. The write
// is post-hoc bookkeeping: a failure here is logged for reconciliation and
// never rolls back or fails the response.
func (l *Ledger) RecordGeneration(record *store.GenerationRecord) {
	insertErr := l.store.InsertGenerationRecord(record)
	if insertErr != nil {
		l.log.Error(
			"reconciliation needed: generation record %s (owner %s, provider %s, %d chars) not persisted: %v",
			record.ID, record.OwnerID, record.ProviderUsed,
			record.CharactersCount, insertErr,
		)
	}

	quotaErr := l.store.IncrementQuota(
		record.ProviderUsed,
		store.MonthKey(record.CreatedAt),
		int64(record.CharactersCount),
	)
	if quotaErr != nil {
		l.log.Error(
			"reconciliation needed: quota counter for provider %s not incremented by %d chars: %v",
			record.ProviderUsed, record.CharactersCount, quotaErr,
		)
	}
}

// Exhausted reports whether the provider's local monthly character counter
// has reached its configured budget. The check uses the pre-write counter
// value; it is a preemptive gate on doomed calls, not an enforcement point —
// the provider enforces its quota authoritatively.
func (l *Ledger) Exhausted(provider string, now time.Time) (bool, error) {
	limit, ok := l.limits[provider]
	if !ok || limit <= 0 {
		return false, nil
	}

	counter, err := l.store.GetQuota(provider, store.MonthKey(now))
	if err != nil {
		return false, fmt.Errorf("failed to read quota counter for '%s': %w", provider, err)
	}

	return counter.CharactersUsed >= limit, nil
}

// History returns the owner's generation records, newest first. A
// non-positive limit selects the default; limits above the cap are clamped.
func (l *Ledger) History(ownerID string, limit int) ([]store.GenerationRecord, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id cannot be empty: %w", core.ErrBadRequest)
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := l.store.ListGenerationRecords(ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	return records, nil
}

// DeleteHistory removes one history row and its stored audio artifact.
func (l *Ledger) DeleteHistory(ctx context.Context, ownerID, recordID string) error {
	record, err := l.store.GetGenerationRecord(ownerID, recordID)
	if err != nil {
		return fmt.Errorf("failed to load record '%s': %w", recordID, err)
	}

	err = l.store.DeleteGenerationRecord(ownerID, recordID)
	if err != nil {
		return fmt.Errorf("failed to delete record '%s': %w", recordID, err)
	}

	audioErr := l.audio.Delete(ctx, record.AudioRef)
	if audioErr != nil {
		// The row is gone; the orphaned object is only a space leak.
		l.log.Warn("failed to delete audio object '%s' for record %s: %v",
			record.AudioRef, recordID, audioErr)
	}

	return nil
}
