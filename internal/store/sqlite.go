package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/book-expert/voice-orchestrator/internal/core"
)

// SQLiteStore implements Store on a single sqlite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies
// migrations. WAL mode keeps concurrent request handlers from serializing on
// reads.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", dbPath, err)
	}

	migrateErr := migrate(db)
	if migrateErr != nil {
		closeErr := db.Close()
		if closeErr != nil {
			return nil, errors.Join(migrateErr, closeErr)
		}

		return nil, migrateErr
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS credentials (
			owner_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			secret TEXT NOT NULL,
			is_valid INTEGER NOT NULL DEFAULT 1,
			is_active INTEGER NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (owner_id, provider)
		)`,
		`CREATE TABLE IF NOT EXISTS voice_clones (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			provider_locator TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_voice_clones_owner ON voice_clones(owner_id)`,
		`CREATE TABLE IF NOT EXISTS generation_records (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			text_input TEXT NOT NULL,
			provider_used TEXT NOT NULL,
			voice_ref TEXT NOT NULL,
			audio_ref TEXT NOT NULL,
			characters_count INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_generation_records_owner_date
			ON generation_records(owner_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS quota_counters (
			provider TEXT NOT NULL,
			month_key TEXT NOT NULL,
			characters_used INTEGER NOT NULL DEFAULT 0,
			requests_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (provider, month_key)
		)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		if err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}

	return nil
}

// GetCredential returns the credential row for the (owner, provider) pair.
func (s *SQLiteStore) GetCredential(ownerID, provider string) (*Credential, error) {
	row := s.db.QueryRow(
		`SELECT owner_id, provider, secret, is_valid, is_active, updated_at
		 FROM credentials WHERE owner_id = ? AND provider = ?`,
		ownerID, provider,
	)

	return scanCredential(row)
}

// UpsertCredential overwrites any existing row for the pair in one statement;
// the newest save always wins and is marked valid and active.
func (s *SQLiteStore) UpsertCredential(
	ownerID, provider, secret string,
) (*Credential, error) {
	_, err := s.db.Exec(
		`INSERT INTO credentials (owner_id, provider, secret, is_valid, is_active, updated_at)
		 VALUES (?, ?, ?, 1, 1, CURRENT_TIMESTAMP)
		 ON CONFLICT (owner_id, provider) DO UPDATE SET
			secret = excluded.secret,
			is_valid = 1,
			is_active = 1,
			updated_at = CURRENT_TIMESTAMP`,
		ownerID, provider, secret,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert credential: %w", err)
	}

	return s.GetCredential(ownerID, provider)
}

// SetCredentialValidity flips the is_valid flag without touching the secret.
func (s *SQLiteStore) SetCredentialValidity(ownerID, provider string, valid bool) error {
	result, err := s.db.Exec(
		`UPDATE credentials SET is_valid = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE owner_id = ? AND provider = ?`,
		boolToInt(valid), ownerID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to update credential validity: %w", err)
	}

	return requireRowAffected(result, core.ErrCredentialNotFound)
}

// DeleteCredential removes the row for the pair.
func (s *SQLiteStore) DeleteCredential(ownerID, provider string) error {
	result, err := s.db.Exec(
		`DELETE FROM credentials WHERE owner_id = ? AND provider = ?`,
		ownerID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	return requireRowAffected(result, core.ErrCredentialNotFound)
}

// ListCredentials returns every credential row owned by ownerID.
func (s *SQLiteStore) ListCredentials(ownerID string) ([]Credential, error) {
	rows, err := s.db.Query(
		`SELECT owner_id, provider, secret, is_valid, is_active, updated_at
		 FROM credentials WHERE owner_id = ? ORDER BY provider`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var credentials []Credential

	for rows.Next() {
		var cred Credential

		var isValid, isActive int

		scanErr := rows.Scan(
			&cred.OwnerID, &cred.Provider, &cred.Secret,
			&isValid, &isActive, &cred.UpdatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", scanErr)
		}

		cred.IsValid = isValid != 0
		cred.IsActive = isActive != 0
		credentials = append(credentials, cred)
	}

	rowsErr := rows.Err()
	if rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate credential rows: %w", rowsErr)
	}

	return credentials, nil
}

// CreateVoiceClone inserts a new clone row. The caller supplies id and
// status; timestamps default in the database.
func (s *SQLiteStore) CreateVoiceClone(clone *VoiceClone) error {
	_, err := s.db.Exec(
		`INSERT INTO voice_clones (id, owner_id, name, description, status, provider_locator, failure_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		clone.ID, clone.OwnerID, clone.Name, clone.Description,
		clone.Status, clone.ProviderLocator, clone.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert voice clone: %w", err)
	}

	return nil
}

// GetVoiceClone returns the clone row with cloneID owned by ownerID.
func (s *SQLiteStore) GetVoiceClone(ownerID, cloneID string) (*VoiceClone, error) {
	row := s.db.QueryRow(
		`SELECT id, owner_id, name, description, status, provider_locator,
			failure_reason, created_at, updated_at
		 FROM voice_clones WHERE owner_id = ? AND id = ?`,
		ownerID, cloneID,
	)

	var clone VoiceClone

	err := row.Scan(
		&clone.ID, &clone.OwnerID, &clone.Name, &clone.Description,
		&clone.Status, &clone.ProviderLocator, &clone.FailureReason,
		&clone.CreatedAt, &clone.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrVoiceNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan voice clone row: %w", err)
	}

	return &clone, nil
}

// ListVoiceClones returns every clone owned by ownerID, newest first.
func (s *SQLiteStore) ListVoiceClones(ownerID string) ([]VoiceClone, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, name, description, status, provider_locator,
			failure_reason, created_at, updated_at
		 FROM voice_clones WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list voice clones: %w", err)
	}
	defer rows.Close()

	var clones []VoiceClone

	for rows.Next() {
		var clone VoiceClone

		scanErr := rows.Scan(
			&clone.ID, &clone.OwnerID, &clone.Name, &clone.Description,
			&clone.Status, &clone.ProviderLocator, &clone.FailureReason,
			&clone.CreatedAt, &clone.UpdatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan voice clone row: %w", scanErr)
		}

		clones = append(clones, clone)
	}

	rowsErr := rows.Err()
	if rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate voice clone rows: %w", rowsErr)
	}

	return clones, nil
}

// MarkCloneReady records the provider locator and moves the clone to ready.
// Only a clone still in processing can transition; ready and failed are
// terminal.
func (s *SQLiteStore) MarkCloneReady(cloneID, providerLocator string) error {
	result, err := s.db.Exec(
		`UPDATE voice_clones
		 SET status = ?, provider_locator = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		CloneStatusReady, providerLocator, cloneID, CloneStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to mark clone ready: %w", err)
	}

	return requireRowAffected(result, core.ErrVoiceNotFound)
}

// MarkCloneFailed records the failure reason and moves the clone to failed.
func (s *SQLiteStore) MarkCloneFailed(cloneID, reason string) error {
	result, err := s.db.Exec(
		`UPDATE voice_clones
		 SET status = ?, failure_reason = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		CloneStatusFailed, reason, cloneID, CloneStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to mark clone failed: %w", err)
	}

	return requireRowAffected(result, core.ErrVoiceNotFound)
}

// InsertGenerationRecord appends one usage ledger row.
func (s *SQLiteStore) InsertGenerationRecord(record *GenerationRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO generation_records
			(id, owner_id, text_input, provider_used, voice_ref, audio_ref, characters_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.OwnerID, record.TextInput, record.ProviderUsed,
		record.VoiceRef, record.AudioRef, record.CharactersCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation record: %w", err)
	}

	return nil
}

// GetGenerationRecord returns one ledger row owned by ownerID.
func (s *SQLiteStore) GetGenerationRecord(
	ownerID, recordID string,
) (*GenerationRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, owner_id, text_input, provider_used, voice_ref, audio_ref,
			characters_count, created_at
		 FROM generation_records WHERE owner_id = ? AND id = ?`,
		ownerID, recordID,
	)

	var record GenerationRecord

	err := row.Scan(
		&record.ID, &record.OwnerID, &record.TextInput, &record.ProviderUsed,
		&record.VoiceRef, &record.AudioRef, &record.CharactersCount,
		&record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan generation record row: %w", err)
	}

	return &record, nil
}

// ListGenerationRecords returns up to limit rows for ownerID, newest first.
func (s *SQLiteStore) ListGenerationRecords(
	ownerID string, limit int,
) ([]GenerationRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, text_input, provider_used, voice_ref, audio_ref,
			characters_count, created_at
		 FROM generation_records WHERE owner_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list generation records: %w", err)
	}
	defer rows.Close()

	var records []GenerationRecord

	for rows.Next() {
		var record GenerationRecord

		scanErr := rows.Scan(
			&record.ID, &record.OwnerID, &record.TextInput,
			&record.ProviderUsed, &record.VoiceRef, &record.AudioRef,
			&record.CharactersCount, &record.CreatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan generation record row: %w", scanErr)
		}

		records = append(records, record)
	}

	rowsErr := rows.Err()
	if rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate generation record rows: %w", rowsErr)
	}

	return records, nil
}

// DeleteGenerationRecord removes one ledger row owned by ownerID.
func (s *SQLiteStore) DeleteGenerationRecord(ownerID, recordID string) error {
	result, err := s.db.Exec(
		`DELETE FROM generation_records WHERE owner_id = ? AND id = ?`,
		ownerID, recordID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete generation record: %w", err)
	}

	return requireRowAffected(result, ErrRecordNotFound)
}

// IncrementQuota atomically adds characters and one request to the counter
// for (provider, monthKey), creating the row on first use.
func (s *SQLiteStore) IncrementQuota(provider, monthKey string, characters int64) error {
	_, err := s.db.Exec(
		`INSERT INTO quota_counters (provider, month_key, characters_used, requests_count)
		 VALUES (?, ?, ?, 1)
		 ON CONFLICT (provider, month_key) DO UPDATE SET
			characters_used = characters_used + excluded.characters_used,
			requests_count = requests_count + 1`,
		provider, monthKey, characters,
	)
	if err != nil {
		return fmt.Errorf("failed to increment quota counter: %w", err)
	}

	return nil
}

// GetQuota returns the counter for (provider, monthKey); a missing row reads
// as zero usage.
func (s *SQLiteStore) GetQuota(provider, monthKey string) (QuotaCounter, error) {
	counter := QuotaCounter{
		Provider:       provider,
		MonthKey:       monthKey,
		CharactersUsed: 0,
		RequestsCount:  0,
	}

	row := s.db.QueryRow(
		`SELECT characters_used, requests_count FROM quota_counters
		 WHERE provider = ? AND month_key = ?`,
		provider, monthKey,
	)

	err := row.Scan(&counter.CharactersUsed, &counter.RequestsCount)
	if errors.Is(err, sql.ErrNoRows) {
		return counter, nil
	}

	if err != nil {
		return counter, fmt.Errorf("failed to scan quota counter row: %w", err)
	}

	return counter, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

func scanCredential(row *sql.Row) (*Credential, error) {
	var cred Credential

	var isValid, isActive int

	err := row.Scan(
		&cred.OwnerID, &cred.Provider, &cred.Secret,
		&isValid, &isActive, &cred.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrCredentialNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan credential row: %w", err)
	}

	cred.IsValid = isValid != 0
	cred.IsActive = isActive != 0

	return &cred, nil
}

func requireRowAffected(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected row count: %w", err)
	}

	if affected == 0 {
		return missing
	}

	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}

	return 0
}

// MonthKey formats the calendar month used as the quota counter key.
func MonthKey(now time.Time) string {
	return now.UTC().Format("2006-01")
}
