// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store persists analysis runs in an embedded SQLite database.
// Detected values are never written in clear text; each detection keeps only
// the hash used by suppression rules, so a stored value can be allowlisted
// without being recoverable.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"participa-scan/internal/detector"
	"participa-scan/internal/formatters"
	"participa-scan/internal/metrics"
	"participa-scan/internal/paths"
	"participa-scan/internal/suppressions"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("run not found")

// migrations are applied in order; the database's user_version is the
// number already applied
var migrations = []string{
	`CREATE TABLE runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		total INTEGER NOT NULL,
		positives INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		summary TEXT
	);
	CREATE INDEX idx_runs_created_at ON runs(created_at);

	CREATE TABLE predictions (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		record_id TEXT NOT NULL,
		prediction INTEGER NOT NULL,
		skipped INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		mean_confidence REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, position)
	);

	CREATE TABLE detections (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		method TEXT NOT NULL,
		span_start INTEGER NOT NULL,
		span_end INTEGER NOT NULL,
		confidence REAL NOT NULL,
		value_hash TEXT NOT NULL
	);
	CREATE INDEX idx_detections_run ON detections(run_id, position);
	CREATE INDEX idx_detections_kind ON detections(kind);`,
}

// SchemaVersion is the schema version this build writes
var SchemaVersion = len(migrations)

// RunInfo summarizes a stored run
type RunInfo struct {
	ID        string
	CreatedAt time.Time
	Source    string
	Total     int
	Positives int
	Skipped   int
	Summary   *metrics.Summary
}

// StoredDetection is a detection without its value
type StoredDetection struct {
	Kind       detector.Kind
	Method     detector.Method
	Span       detector.Span
	Confidence float64
	ValueHash  string
}

// Prediction is one stored record outcome
type Prediction struct {
	Position       int
	RecordID       string
	Prediction     int
	Skipped        bool
	Error          string
	MeanConfidence float64
	Detections     []StoredDetection
}

// Store wraps the run database
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path, or the default file when
// empty, and brings its schema up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = paths.GetDatabaseFile()
	}
	if err := paths.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string { return s.path }

// Close closes the database
func (s *Store) Close() error { return s.db.Close() }

// Version returns the schema version recorded in the database
func (s *Store) Version(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) migrate(ctx context.Context) error {
	version, err := s.Version(ctx)
	if err != nil {
		return err
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}
	return nil
}

// SaveRun stores a run with its predictions and detections in one transaction
func (s *Store) SaveRun(ctx context.Context, run *formatters.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id cannot be empty")
	}

	var summary sql.NullString
	if run.Summary != nil {
		data, err := json.Marshal(run.Summary)
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		summary = sql.NullString{String: string(data), Valid: true}
	}
	positives, skipped := run.Counts()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, source, total, positives, skipped, summary) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Timestamp.UnixNano(), run.Source, len(run.Results), positives, skipped, summary); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	predStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO predictions (run_id, position, record_id, prediction, skipped, error, mean_confidence) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare prediction statement: %w", err)
	}
	defer predStmt.Close()

	detStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO detections (run_id, position, kind, method, span_start, span_end, confidence, value_hash) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare detection statement: %w", err)
	}
	defer detStmt.Close()

	for pos, res := range run.Results {
		if _, err := predStmt.ExecContext(ctx, run.ID, pos, res.ID, res.Prediction(), res.Skipped, res.Error, res.MeanConfidence()); err != nil {
			return fmt.Errorf("insert prediction %s: %w", res.ID, err)
		}
		for _, d := range res.Detections {
			if _, err := detStmt.ExecContext(ctx, run.ID, pos, string(d.Kind), string(d.Method),
				d.Span.Start, d.Span.End, d.Confidence, suppressions.ValueHash(d.Kind, d.Value)); err != nil {
				return fmt.Errorf("insert detection for %s: %w", res.ID, err)
			}
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs first; limit <= 0 returns all
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	query := `SELECT id, created_at, source, total, positives, skipped, summary FROM runs ORDER BY created_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			info    RunInfo
			created int64
			summary sql.NullString
		)
		if err := rows.Scan(&info.ID, &created, &info.Source, &info.Total, &info.Positives, &info.Skipped, &summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		info.CreatedAt = time.Unix(0, created).UTC()
		if summary.Valid {
			var sum metrics.Summary
			if err := json.Unmarshal([]byte(summary.String), &sum); err != nil {
				return nil, fmt.Errorf("decode summary of run %s: %w", info.ID, err)
			}
			info.Summary = &sum
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// GetPredictions returns a run's predictions in input order
func (s *Store) GetPredictions(ctx context.Context, runID string) ([]Prediction, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("look up run %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, record_id, prediction, skipped, error, mean_confidence FROM predictions WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	var preds []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.Position, &p.RecordID, &p.Prediction, &p.Skipped, &p.Error, &p.MeanConfidence); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		preds = append(preds, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	drows, err := s.db.QueryContext(ctx,
		`SELECT position, kind, method, span_start, span_end, confidence, value_hash FROM detections WHERE run_id = ? ORDER BY position, span_start, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer drows.Close()
	for drows.Next() {
		var (
			pos          int
			kind, method string
			d            StoredDetection
		)
		if err := drows.Scan(&pos, &kind, &method, &d.Span.Start, &d.Span.End, &d.Confidence, &d.ValueHash); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		d.Kind = detector.Kind(kind)
		d.Method = detector.Method(method)
		if pos >= 0 && pos < len(preds) && preds[pos].Position == pos {
			preds[pos].Detections = append(preds[pos].Detections, d)
		}
	}
	return preds, drows.Err()
}

// PurgeOlderThan deletes runs created before cutoff, with their predictions
// and detections, and returns how many runs were removed
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return result.RowsAffected()
}
