// Package history records every flatten run in a SQLite database so past
// runs and their per-entry failures can be listed later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/flatten/internal/models"
)

var (
	// ErrRunNotFound is returned when no run matches an ID or ID prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRunID is returned when an ID prefix matches more than one run.
	ErrAmbiguousRunID = errors.New("run ID prefix is ambiguous")
)

// Run is one persisted flatten run.
type Run struct {
	ID        string
	Root      string
	Output    string
	SourceExt string
	TargetExt string
	StartedAt time.Time
	Duration  time.Duration
	State     string
	DryRun    bool
	Scanned   int
	Copied    int
	Renamed   int
	Skipped   int
	Failed    int
	Error     string
}

// Failure is one persisted per-entry failure.
type Failure struct {
	ID      int64
	RunID   string
	Kind    string
	Path    string
	Message string
}

// Store manages the SQLite run history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	// Handle in-memory database
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	// Ensure parent directory exists for file-based databases
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	return openAndInitStore(dbPath)
}

// openAndInitStore opens the database connection and initializes schema
func openAndInitStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	// busy_timeout goes first so the remaining pragmas wait on locks.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, query string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(query)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a run and its failures in one transaction.
func (s *Store) RecordRun(ctx context.Context, result *models.RunResult) error {
	if result == nil || result.RunID == "" {
		return fmt.Errorf("record run: missing run ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, root, output, source_ext, target_ext, started_at, duration_ms, state,
		 scanned, copied, renamed, failed, error, dry_run, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Root, result.Output, result.From, result.To,
		result.StartedAt.UTC(), result.Duration.Milliseconds(), string(result.State),
		result.Scanned, result.Copied, result.Renamed, result.Failed(), errMsg,
		result.DryRun, result.Skipped,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, f := range result.Failures {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_failures (run_id, kind, path, message) VALUES (?, ?, ?, ?)`,
			result.RunID, f.Kind, f.Path, f.Message)
		if err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, root, output, source_ext, target_ext, started_at, duration_ms, state,
	scanned, copied, renamed, failed, COALESCE(error, ''), dry_run, skipped`

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run whose ID equals or starts with idPrefix.
func (s *Store) GetRun(ctx context.Context, idPrefix string) (*Run, error) {
	if idPrefix == "" {
		return nil, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' LIMIT 2`,
		idPrefix, escapeLike(idPrefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, idPrefix)
	case 1:
		return found[0], nil
	default:
		for _, r := range found {
			if r.ID == idPrefix {
				return r, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, idPrefix)
	}
}

// GetFailures returns the failures recorded for runID in insertion order.
func (s *Store) GetFailures(ctx context.Context, runID string) ([]*Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, kind, COALESCE(path, ''), COALESCE(message, '')
		 FROM run_failures WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var failures []*Failure
	for rows.Next() {
		f := &Failure{}
		if err := rows.Scan(&f.ID, &f.RunID, &f.Kind, &f.Path, &f.Message); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}

// CleanupOlderThan deletes runs that started more than keepDays days ago,
// along with their failures. keepDays <= 0 keeps everything.
func (s *Store) CleanupOlderThan(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM run_failures WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("cleanup old failures: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old runs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(rows rowScanner) (*Run, error) {
	r := &Run{}
	var durationMs int64
	if err := rows.Scan(&r.ID, &r.Root, &r.Output, &r.SourceExt, &r.TargetExt, &r.StartedAt,
		&durationMs, &r.State, &r.Scanned, &r.Copied, &r.Renamed, &r.Failed, &r.Error,
		&r.DryRun, &r.Skipped); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return r, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
