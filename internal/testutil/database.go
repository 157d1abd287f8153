package testutil

import (
	"testing"

	"import-data/internal/database"
	"import-data/internal/importer"
)

// NewTestDatabase creates a new in-memory SQLite history store with the
// schema applied. It is closed automatically when the test completes.
func NewTestDatabase(t *testing.T) importer.History {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
