package database

import (
	"fmt"
	"os"
	"path/filepath"

	"import-data/internal/config"
	"import-data/internal/importer"
)

// FileName is the history database file inside the configured data_dir.
const FileName = "import-data.db"

// NewHistoryFromConfig creates the run history store for cfg. Type "none"
// (or empty) disables history and returns nil.
func NewHistoryFromConfig(cfg config.DatabaseConfig, logger importer.Logger) (importer.History, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		return open(filepath.Join(cfg.DataDir, FileName), logger)
	case "memory":
		return open(":memory:", logger)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

func open(path string, logger importer.Logger) (importer.History, error) {
	db, err := NewSQLiteDatabase(path, logger)
	if err != nil {
		return nil, err
	}
	return db, nil
}
