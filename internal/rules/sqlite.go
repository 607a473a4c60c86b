package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mailfold/mailfold/internal/thread"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath, enables WAL
// mode, and applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// FindRecords queries records filtered by thread ids and statuses.
// Most-recently-created first, id as a deterministic tie-break, so a
// reader taking the first record per thread gets a stable answer.
func (s *SQLiteStore) FindRecords(
	ctx context.Context,
	accountID string,
	ids []thread.ID,
	statuses []thread.RecordStatus,
) ([]thread.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := []interface{}{accountID}
	query := "SELECT id, thread_id, rule_id, status, reason, actions, created_at" +
		" FROM automation_records WHERE account_id = ?"

	query += " AND thread_id IN (" + placeholders(len(ids)) + ")"
	for _, id := range ids {
		args = append(args, string(id))
	}
	if len(statuses) > 0 {
		query += " AND status IN (" + placeholders(len(statuses)) + ")"
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying automation records: %w", err)
	}
	defer rows.Close()

	var records []thread.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetCategories fetches tags for the given threads in one query.
func (s *SQLiteStore) GetCategories(
	ctx context.Context,
	accountID string,
	ids []thread.ID,
) (map[thread.ID]thread.Category, error) {
	out := make(map[thread.ID]thread.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := []interface{}{accountID}
	query := "SELECT thread_id, value FROM thread_categories WHERE account_id = ?" +
		" AND thread_id IN (" + placeholders(len(ids)) + ")"
	for _, id := range ids {
		args = append(args, string(id))
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var threadID, value string
		if err := rows.Scan(&threadID, &value); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		out[thread.ID(threadID)] = thread.Category{ThreadID: thread.ID(threadID), Value: value}
	}
	return out, rows.Err()
}

// PutRecord inserts or replaces a record.
func (s *SQLiteStore) PutRecord(
	ctx context.Context,
	accountID string,
	rec thread.Record,
) (thread.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	actions, err := json.Marshal(rec.Actions)
	if err != nil {
		return thread.Record{}, fmt.Errorf("marshaling record actions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO automation_records (
			id, account_id, thread_id, rule_id, status, reason, actions, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, accountID, string(rec.ThreadID), rec.RuleID,
		string(rec.Status), rec.Reason, string(actions), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return thread.Record{}, fmt.Errorf("upserting record %s: %w", rec.ID, err)
	}
	return rec, nil
}

// SetCategory upserts the tag for a thread.
func (s *SQLiteStore) SetCategory(
	ctx context.Context,
	accountID string,
	threadID thread.ID,
	value string,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO thread_categories (account_id, thread_id, value, updated_at)
		VALUES (?, ?, ?, ?)`,
		accountID, string(threadID), value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting category for %s: %w", threadID, err)
	}
	return nil
}

// DeleteCategory removes the tag for a thread.
func (s *SQLiteStore) DeleteCategory(
	ctx context.Context,
	accountID string,
	threadID thread.ID,
) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM thread_categories WHERE account_id = ? AND thread_id = ?",
		accountID, string(threadID),
	)
	if err != nil {
		return fmt.Errorf("deleting category for %s: %w", threadID, err)
	}
	return nil
}

func scanRecord(rows *sqlx.Rows) (thread.Record, error) {
	var (
		rec       thread.Record
		threadID  string
		status    string
		actions   string
		createdAt time.Time
	)
	err := rows.Scan(&rec.ID, &threadID, &rec.RuleID, &status, &rec.Reason, &actions, &createdAt)
	if err != nil {
		return thread.Record{}, fmt.Errorf("scanning record row: %w", err)
	}

	rec.ThreadID = thread.ID(threadID)
	rec.Status = thread.RecordStatus(status)
	rec.CreatedAt = createdAt
	if actions != "" {
		if err := json.Unmarshal([]byte(actions), &rec.Actions); err != nil {
			return thread.Record{}, fmt.Errorf("unmarshaling record actions: %w", err)
		}
	}
	return rec, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var _ Store = (*SQLiteStore)(nil)
