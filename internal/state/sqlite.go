package state

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and migrates) the store at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStore, "open sqlite database").
			WithContext("path", dbPath).Build()
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryStore, "initialize schema").
			WithContext("path", dbPath).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		run_id TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		trigger TEXT NOT NULL,
		dry_run INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		changed INTEGER NOT NULL,
		unchanged INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		tables INTEGER NOT NULL,
		inline_code INTEGER NOT NULL,
		skipped_references INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// PageHash returns the recorded hash for path.
func (s *SQLiteStore) PageHash(ctx context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT hash FROM pages WHERE path = ?", path).Scan(&hash)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryStore, "query page hash").
			WithContext("path", path).Build()
	}
	return hash, nil
}

// PutPageHash inserts or replaces the page record.
func (s *SQLiteStore) PutPageHash(ctx context.Context, page Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page.UpdatedAt.IsZero() {
		page.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (path, hash, run_id, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, run_id = excluded.run_id, updated_at = excluded.updated_at`,
		page.Path, page.Hash, page.RunID, page.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryStore, "upsert page hash").
			WithContext("path", page.Path).Build()
	}
	return nil
}

// RecordRun stores a finished run summary.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, root, trigger, dry_run, started_at, finished_at, pages, changed, unchanged, skipped, failed, tables, inline_code, skipped_references)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.Trigger, run.DryRun,
		run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(),
		run.Pages, run.Changed, run.Unchanged, run.Skipped, run.Failed,
		run.Tables, run.InlineCode, run.SkippedReferences,
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryStore, "insert run").
			WithContext("run_id", run.ID).Build()
	}
	return nil
}

// LastRun returns the most recently finished run.
func (s *SQLiteStore) LastRun(ctx context.Context) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		run               Run
		started, finished int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, root, trigger, dry_run, started_at, finished_at, pages, changed, unchanged, skipped, failed, tables, inline_code, skipped_references
		 FROM runs ORDER BY finished_at DESC, rowid DESC LIMIT 1`,
	).Scan(&run.ID, &run.Root, &run.Trigger, &run.DryRun, &started, &finished,
		&run.Pages, &run.Changed, &run.Unchanged, &run.Skipped, &run.Failed,
		&run.Tables, &run.InlineCode, &run.SkippedReferences)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStore, "query last run").Build()
	}
	run.StartedAt = time.Unix(0, started)
	run.FinishedAt = time.Unix(0, finished)
	return &run, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
