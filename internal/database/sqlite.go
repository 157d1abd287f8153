package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"import-data/internal/database/migrations"
	"import-data/internal/importer"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase stores import run history in SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *Queries
	path    string
	logger  importer.Logger
}

var _ importer.History = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens the database at path (or ":memory:") and applies
// any pending migrations. logger may be nil.
func NewSQLiteDatabase(path string, logger importer.Logger) (*SQLiteDatabase, error) {
	if logger == nil {
		logger = importer.NewNopLogger()
	}
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("history database ready", "path", path)

	return &SQLiteDatabase{
		db:      db,
		queries: newQueries(db),
		path:    path,
		logger:  logger,
	}, nil
}

// OpenConnection opens a SQLite connection with foreign keys enabled.
// An in-memory database is limited to one connection, since every
// connection would otherwise see its own empty database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// CreateImportRun inserts run and sets run.ID.
func (s *SQLiteDatabase) CreateImportRun(run *importer.ImportRun) error {
	id, err := s.queries.insertImportRun(context.Background(), insertImportRunParams{
		RunID:       run.RunID,
		Repository:  run.Repository,
		CommitSha:   run.CommitSHA,
		ContentHash: run.ContentHash,
		Status:      run.Status,
		Stats:       run.Stats,
		Error:       run.Error,
		StartedAt:   run.StartedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("creating import run: %w", err)
	}
	run.ID = id
	return nil
}

// FinishImportRun stores the final state of run.
func (s *SQLiteDatabase) FinishImportRun(run *importer.ImportRun) error {
	finished := sql.NullTime{}
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
	}
	n, err := s.queries.updateImportRunFinished(context.Background(), updateImportRunFinishedParams{
		Repository:  run.Repository,
		CommitSha:   run.CommitSHA,
		ContentHash: run.ContentHash,
		Status:      run.Status,
		Stats:       run.Stats,
		Error:       run.Error,
		FinishedAt:  finished,
		ID:          run.ID,
	})
	if err != nil {
		return fmt.Errorf("finishing import run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing import run: no run with id %d", run.ID)
	}
	return nil
}

// ListImportRuns returns up to limit runs, newest first.
func (s *SQLiteDatabase) ListImportRuns(limit int) ([]*importer.ImportRun, error) {
	rows, err := s.queries.getImportRuns(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing import runs: %w", err)
	}

	runs := make([]*importer.ImportRun, len(rows))
	for i, r := range rows {
		run := &importer.ImportRun{
			ID:          r.ID,
			RunID:       r.RunID,
			Repository:  r.Repository,
			CommitSHA:   r.CommitSha,
			ContentHash: r.ContentHash,
			Status:      r.Status,
			Stats:       r.Stats,
			Error:       r.Error,
			StartedAt:   r.StartedAt,
		}
		if r.FinishedAt.Valid {
			finished := r.FinishedAt.Time
			run.FinishedAt = &finished
		}
		runs[i] = run
	}
	return runs, nil
}

// AbandonStaleRuns marks runs still "running" as abandoned. A run is only
// left running when its process died, so this is called before a new run
// starts.
func (s *SQLiteDatabase) AbandonStaleRuns(now time.Time) (int, error) {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := s.queries.withTx(tx).markStaleRuns(context.Background(), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("abandoning stale runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	if n > 0 {
		s.logger.Warn("marked interrupted import runs as abandoned", "count", n)
	}
	return int(n), nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
