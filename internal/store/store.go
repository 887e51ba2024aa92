// Package store persists reading records as JSON documents in SQLite and
// serves the dashboard query and correction-merge paths. The write path only
// ever writes the current record shape; historical shapes are normalized at
// read time.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/mouldworks/mouldlens/internal/telemetry"
)

// Errors surfaced by the correction path.
var (
	ErrNotFound  = errors.New("record not found")
	ErrInvalidID = errors.New("invalid record id")
)

// maxQueryResults caps one dashboard query.
const maxQueryResults = 5000

// Store is the telemetry store adapter. It exclusively owns identifier
// assignment: no other component mints record ids.
type Store struct {
	db            *sql.DB
	path          string
	defaultCamera string
	logger        *zap.Logger
}

// New opens (or creates) the SQLite database at path and ensures the schema.
func New(path, defaultCamera string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logger.Debug("failed to set sqlite synchronous=NORMAL", zap.Error(err))
	}

	s := &Store{db: db, path: path, defaultCamera: defaultCamera, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("telemetry store ready", zap.String("path", path))
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS mould_readings (
		id TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		document TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mould_readings_ts ON mould_readings(ts);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close releases the database handle. Owned by the process entry point.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists one reading record and returns its new identifier.
func (s *Store) Insert(ctx context.Context, rec telemetry.ReadingRecord) (string, error) {
	rec.ID = "" // the document never embeds its own identifier
	doc, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO mould_readings (id, ts, document) VALUES (?, ?, ?)",
		id, rec.Timestamp.UnixMilli(), string(doc))
	if err != nil {
		return "", fmt.Errorf("failed to insert record: %w", err)
	}
	return id, nil
}

// QueryFilter selects records either by a rolling hour window or by an
// explicit date range. When Start and End are set the range wins; End is
// inclusive of the entire final day.
type QueryFilter struct {
	Hours int // rolling window, defaults to 24
	Start time.Time
	End   time.Time
}

// Query returns matching records newest first, capped at maxQueryResults.
// Legacy document shapes are normalized into the current record shape.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]telemetry.ReadingRecord, error) {
	var from, to int64
	if !filter.Start.IsZero() && !filter.End.IsZero() {
		from = filter.Start.UnixMilli()
		to = filter.End.AddDate(0, 0, 1).UnixMilli()
	} else {
		hours := filter.Hours
		if hours <= 0 {
			hours = 24
		}
		from = time.Now().UTC().Add(-time.Duration(hours) * time.Hour).UnixMilli()
		to = time.Now().UTC().AddDate(1, 0, 0).UnixMilli()
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, document FROM mould_readings WHERE ts >= ? AND ts < ? ORDER BY ts DESC LIMIT ?",
		from, to, maxQueryResults)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []telemetry.ReadingRecord
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := normalizeDocument([]byte(doc), s.defaultCamera)
		if err != nil {
			s.logger.Warn("skipping undecodable record", zap.String("id", id), zap.Error(err))
			continue
		}
		rec.ID = id
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ApplyCorrection merges an operator-supplied partial update into an existing
// record. Only present fields are touched and is_human_corrected is set on
// any accepted change. An empty patch reports no changes without touching the
// store. Concurrent corrections are last-write-wins at the field level.
func (s *Store) ApplyCorrection(ctx context.Context, id string, patch telemetry.CorrectionPatch) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if patch.IsEmpty() {
		return false, nil
	}

	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM mould_readings WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read record: %w", err)
	}

	// Operate on the raw document so fields outside the current shape
	// (legacy keys) survive the merge untouched.
	var fields map[string]any
	if err := json.Unmarshal([]byte(doc), &fields); err != nil {
		return false, fmt.Errorf("failed to decode stored record: %w", err)
	}
	if patch.Cope != nil {
		fields["cope"] = *patch.Cope
	}
	if patch.Drag != nil {
		fields["drag"] = patch.Drag
	}
	fields["is_human_corrected"] = true

	updated, err := json.Marshal(fields)
	if err != nil {
		return false, fmt.Errorf("failed to encode corrected record: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE mould_readings SET document = ? WHERE id = ?", string(updated), id)
	if err != nil {
		return false, fmt.Errorf("failed to update record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return false, ErrNotFound
	}

	s.logger.Info("reading corrected",
		zap.String("id", id),
		zap.Bool("cope_changed", patch.Cope != nil),
		zap.Bool("drag_changed", patch.Drag != nil))
	return true, nil
}
