package importer

import "time"

// ImportRun is one recorded execution of the importer.
type ImportRun struct {
	ID          int64
	RunID       string
	Repository  string
	CommitSHA   string
	ContentHash string
	Status      string // "running", "success", "error", "cancelled" or "abandoned"
	Stats       string // JSON-encoded Stats
	Error       string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// History persists import runs.
type History interface {
	// CreateImportRun inserts run and sets its ID.
	CreateImportRun(run *ImportRun) error

	// FinishImportRun records the final state of run.
	FinishImportRun(run *ImportRun) error

	// AbandonStaleRuns marks runs left "running" by a dead process as
	// abandoned and returns how many there were.
	AbandonStaleRuns(now time.Time) (int, error)

	// ListImportRuns returns the most recent runs, newest first.
	ListImportRuns(limit int) ([]*ImportRun, error)

	// Close closes the underlying storage.
	Close() error
}
