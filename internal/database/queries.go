package database

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the statements for the import_runs table.
type Queries struct {
	db DBTX
}

func newQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) withTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// importRunRow mirrors one import_runs row.
type importRunRow struct {
	ID          int64
	RunID       string
	Repository  string
	CommitSha   string
	ContentHash string
	Status      string
	Stats       string
	Error       string
	StartedAt   time.Time
	FinishedAt  sql.NullTime
}

const insertImportRun = `-- name: InsertImportRun :one
INSERT INTO import_runs (run_id, repository, commit_sha, content_hash, status, stats, error, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type insertImportRunParams struct {
	RunID       string
	Repository  string
	CommitSha   string
	ContentHash string
	Status      string
	Stats       string
	Error       string
	StartedAt   time.Time
}

func (q *Queries) insertImportRun(ctx context.Context, arg insertImportRunParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertImportRun,
		arg.RunID,
		arg.Repository,
		arg.CommitSha,
		arg.ContentHash,
		arg.Status,
		arg.Stats,
		arg.Error,
		arg.StartedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateImportRunFinished = `-- name: UpdateImportRunFinished :execrows
UPDATE import_runs
SET repository = ?, commit_sha = ?, content_hash = ?, status = ?, stats = ?, error = ?, finished_at = ?
WHERE id = ?
`

type updateImportRunFinishedParams struct {
	Repository  string
	CommitSha   string
	ContentHash string
	Status      string
	Stats       string
	Error       string
	FinishedAt  sql.NullTime
	ID          int64
}

func (q *Queries) updateImportRunFinished(ctx context.Context, arg updateImportRunFinishedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateImportRunFinished,
		arg.Repository,
		arg.CommitSha,
		arg.ContentHash,
		arg.Status,
		arg.Stats,
		arg.Error,
		arg.FinishedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getImportRuns = `-- name: GetImportRuns :many
SELECT id, run_id, repository, commit_sha, content_hash, status, stats, error, started_at, finished_at
FROM import_runs
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) getImportRuns(ctx context.Context, limit int64) ([]importRunRow, error) {
	rows, err := q.db.QueryContext(ctx, getImportRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []importRunRow
	for rows.Next() {
		var i importRunRow
		if err := rows.Scan(
			&i.ID,
			&i.RunID,
			&i.Repository,
			&i.CommitSha,
			&i.ContentHash,
			&i.Status,
			&i.Stats,
			&i.Error,
			&i.StartedAt,
			&i.FinishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markStaleRuns = `-- name: MarkStaleRuns :execrows
UPDATE import_runs
SET status = 'abandoned', finished_at = ?
WHERE status = 'running'
`

func (q *Queries) markStaleRuns(ctx context.Context, finishedAt time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, markStaleRuns, finishedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
