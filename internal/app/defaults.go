package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigFile is used when IMPORT_DATA_CONFIG is not set.
const DefaultConfigFile = "import-data.toml"

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - IMPORT_DATA_CONFIG: config file location (default: ./import-data.toml)
//   - IMPORT_DATA_HOME: base directory for run history and logs (default: ~/.local/share/import-data)
func GetDefaults() (map[string]string, error) {
	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": getConfigPath(),
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns IMPORT_DATA_CONFIG, or the config file in the
// working directory.
func getConfigPath() string {
	if path := os.Getenv("IMPORT_DATA_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(".", DefaultConfigFile)
}

// getBaseDir returns IMPORT_DATA_HOME, falling back to the XDG default
// ~/.local/share/import-data.
func getBaseDir() (string, error) {
	if path := os.Getenv("IMPORT_DATA_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "import-data"), nil
}
