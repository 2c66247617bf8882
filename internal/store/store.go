package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"trailhead/internal/statusledger"
)

// Store wraps access to the database.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// hashAPIKey hashes a raw API key string using SHA-256 and returns a hex string.
func hashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// APIKey is one row of the api_keys table.
type APIKey struct {
	ID                 uuid.UUID
	KeyHash            string
	Label              string
	IsAdmin            bool
	RateLimitPerMinute sql.NullInt32
	CreatedAt          time.Time
	RevokedAt          sql.NullTime
}

// ImportJob is one row of the import_jobs table: a single ledger
// file (or request body) ingested as a unit.
type ImportJob struct {
	ID          uuid.UUID
	Source      string
	Status      string
	RecordCount int32
	Error       sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LedgerFilter narrows which status rows are loaded. Nil fields match
// every value. This is a storage-level pre-filter only; completion
// semantics live in statusledger.Table.
type LedgerFilter struct {
	PipelineName    *string
	PipelineVersion *string
	PipelineStep    *string
	ParticipantID   *string
	SessionID       *string
}

const statusRecordCols = `participant_id, bids_participant_id, session_id, bids_session_id,
	pipeline_name, pipeline_version, pipeline_step, status`

// InsertStatusRecord appends one validated ledger row.
func (s *Store) InsertStatusRecord(ctx context.Context, rec statusledger.StatusRecord, importID *uuid.UUID) error {
	var imp uuid.NullUUID
	if importID != nil {
		imp = uuid.NullUUID{UUID: *importID, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO status_records (`+statusRecordCols+`, import_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ParticipantID, rec.BIDSParticipantID, rec.SessionID, rec.BIDSSessionID,
		rec.PipelineName, rec.PipelineVersion, rec.PipelineStep, string(rec.Status), imp,
	)
	if err != nil {
		return fmt.Errorf("insert status record: %w", err)
	}
	return nil
}

// InsertStatusRecords appends a batch of ledger rows under one import
// job, all-or-nothing.
func (s *Store) InsertStatusRecords(ctx context.Context, recs []statusledger.StatusRecord, importID uuid.UUID) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO status_records (`+statusRecordCols+`, import_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx,
			rec.ParticipantID, rec.BIDSParticipantID, rec.SessionID, rec.BIDSSessionID,
			rec.PipelineName, rec.PipelineVersion, rec.PipelineStep, string(rec.Status), importID,
		); err != nil {
			return fmt.Errorf("insert status record: %w", err)
		}
	}

	return tx.Commit()
}

// LoadLedger reads status rows back into an in-memory table, in
// insertion order. An empty filter loads the whole ledger.
func (s *Store) LoadLedger(ctx context.Context, filter LedgerFilter) (*statusledger.Table, error) {
	query := `SELECT ` + statusRecordCols + ` FROM status_records WHERE 1=1`
	var args []any

	add := func(col string, val *string) {
		if val == nil {
			return
		}
		args = append(args, *val)
		query += fmt.Sprintf(" AND %s = $%d", col, len(args))
	}
	add(statusledger.ColPipelineName, filter.PipelineName)
	add(statusledger.ColPipelineVersion, filter.PipelineVersion)
	add(statusledger.ColPipelineStep, filter.PipelineStep)
	add(statusledger.ColParticipantID, filter.ParticipantID)
	add(statusledger.ColSessionID, filter.SessionID)
	query += " ORDER BY id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	defer rows.Close()

	table, err := statusledger.NewTable()
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var rec statusledger.StatusRecord
		var status string
		if err := rows.Scan(
			&rec.ParticipantID, &rec.BIDSParticipantID, &rec.SessionID, &rec.BIDSSessionID,
			&rec.PipelineName, &rec.PipelineVersion, &rec.PipelineStep, &status,
		); err != nil {
			return nil, fmt.Errorf("scan status record: %w", err)
		}
		rec.Status = statusledger.Status(status)
		if err := table.Append(rec); err != nil {
			return nil, fmt.Errorf("stored record failed validation: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return table, nil
}

// CreateImportJob inserts a new import job row in the given initial
// status. Status vocabulary is owned by the jobs package; the store
// does not interpret it.
func (s *Store) CreateImportJob(ctx context.Context, id uuid.UUID, source, status string) (ImportJob, error) {
	var job ImportJob
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO import_jobs (id, source, status)
		VALUES ($1, $2, $3)
		RETURNING id, source, status, record_count, error, created_at, updated_at`,
		id, source, status,
	).Scan(&job.ID, &job.Source, &job.Status, &job.RecordCount, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return ImportJob{}, fmt.Errorf("create import job: %w", err)
	}
	return job, nil
}

// UpdateImportJobStatus updates the status, record count, and optional
// error message for an import job.
func (s *Store) UpdateImportJobStatus(ctx context.Context, id uuid.UUID, status string, recordCount int32, errMsg *string) error {
	var sqlErr sql.NullString
	if errMsg != nil {
		sqlErr = sql.NullString{String: *errMsg, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = $2, record_count = $3, error = $4, updated_at = now()
		WHERE id = $1`,
		id, status, recordCount, sqlErr,
	)
	if err != nil {
		return fmt.Errorf("update import job: %w", err)
	}
	return nil
}

// GetImportJob fetches one import job by ID.
func (s *Store) GetImportJob(ctx context.Context, id uuid.UUID) (ImportJob, error) {
	var job ImportJob
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, source, status, record_count, error, created_at, updated_at
		FROM import_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.Source, &job.Status, &job.RecordCount, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return ImportJob{}, err
	}
	return job, nil
}

// ListImportJobs returns the most recent import jobs, newest first.
func (s *Store) ListImportJobs(ctx context.Context, limit int32) ([]ImportJob, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, source, status, record_count, error, created_at, updated_at
		FROM import_jobs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	defer rows.Close()

	var jobs []ImportJob
	for rows.Next() {
		var job ImportJob
		if err := rows.Scan(&job.ID, &job.Source, &job.Status, &job.RecordCount, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan import job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteImportJobsBefore removes import jobs created before the cutoff
// and returns how many were deleted.
func (s *Store) DeleteImportJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM import_jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete import jobs: %w", err)
	}
	return res.RowsAffected()
}

// GetAPIKeyByRawKey looks up a non-revoked API key by its raw value.
func (s *Store) GetAPIKeyByRawKey(ctx context.Context, rawKey string) (APIKey, error) {
	hash := hashAPIKey(rawKey)

	var key APIKey
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, key_hash, label, is_admin, rate_limit_per_minute, created_at, revoked_at
		FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`,
		hash,
	).Scan(&key.ID, &key.KeyHash, &key.Label, &key.IsAdmin, &key.RateLimitPerMinute, &key.CreatedAt, &key.RevokedAt)
	if err != nil {
		return APIKey{}, err
	}
	return key, nil
}

// EnsureAdminAPIKey ensures that there is an admin API key for the given raw key and label.
// If it already exists, it is returned; otherwise, it is created.
func (s *Store) EnsureAdminAPIKey(ctx context.Context, rawKey, label string) (APIKey, error) {
	key, err := s.GetAPIKeyByRawKey(ctx, rawKey)
	if err == nil {
		return key, nil
	}
	if err != sql.ErrNoRows {
		return APIKey{}, err
	}

	return s.insertAPIKey(ctx, hashAPIKey(rawKey), label, true, nil)
}

// CreateRandomAPIKey creates a new random API key (with th_ prefix).
// It returns the raw key plus the stored record; the raw key is never
// persisted.
func (s *Store) CreateRandomAPIKey(ctx context.Context, label string, isAdmin bool, rateLimitPerMinute *int) (string, APIKey, error) {
	raw := "th_" + uuid.New().String()

	key, err := s.insertAPIKey(ctx, hashAPIKey(raw), label, isAdmin, rateLimitPerMinute)
	if err != nil {
		return "", APIKey{}, err
	}
	return raw, key, nil
}

func (s *Store) insertAPIKey(ctx context.Context, hash, label string, isAdmin bool, rateLimitPerMinute *int) (APIKey, error) {
	var rl sql.NullInt32
	if rateLimitPerMinute != nil {
		rl = sql.NullInt32{Int32: int32(*rateLimitPerMinute), Valid: true}
	}

	var key APIKey
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO api_keys (id, key_hash, label, is_admin, rate_limit_per_minute)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, key_hash, label, is_admin, rate_limit_per_minute, created_at, revoked_at`,
		uuid.New(), hash, label, isAdmin, rl,
	).Scan(&key.ID, &key.KeyHash, &key.Label, &key.IsAdmin, &key.RateLimitPerMinute, &key.CreatedAt, &key.RevokedAt)
	if err != nil {
		return APIKey{}, fmt.Errorf("insert api key: %w", err)
	}
	return key, nil
}

// ListAPIKeys returns all API keys, newest first.
func (s *Store) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, key_hash, label, is_admin, rate_limit_per_minute, created_at, revoked_at
		FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var key APIKey
		if err := rows.Scan(&key.ID, &key.KeyHash, &key.Label, &key.IsAdmin, &key.RateLimitPerMinute, &key.CreatedAt, &key.RevokedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// RevokeAPIKey marks a key as revoked. Revoked keys fail auth lookups
// but stay in the table for audit.
func (s *Store) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
