package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"import-data/internal/importer"
)

// checksumSuffix names the sidecar holding an asset's SHA-256.
const checksumSuffix = ".sha256"

// FileSystemVault mirrors assets into a directory tree:
//
//	<root>/
//	  events/<slug>/gallery/<name>.webp
//	  events/<slug>/gallery/<name>.webp.sha256
//	  venues/<slug>/map.jpg
//	  ...
type FileSystemVault struct {
	name string
	root string
}

var _ importer.Vault = (*FileSystemVault)(nil)

// NewFileSystemVault creates a filesystem vault rooted at root, creating
// the directory if needed.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}
	return &FileSystemVault{name: name, root: root}, nil
}

// path resolves key below root, rejecting keys that would escape it.
func (v *FileSystemVault) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid asset key %q", key)
	}
	return filepath.Join(v.root, clean), nil
}

// PutAsset copies the asset into the vault unless its checksum sidecar
// already matches.
func (v *FileSystemVault) PutAsset(ctx context.Context, key string, r io.Reader, size int64, checksum string) (bool, error) {
	destPath, err := v.path(key)
	if err != nil {
		return false, err
	}

	stored, err := os.ReadFile(destPath + checksumSuffix)
	if err == nil && strings.TrimSpace(string(stored)) == checksum {
		if _, err := os.Stat(destPath); err == nil {
			written, err := io.Copy(io.Discard, r)
			if err != nil {
				return false, fmt.Errorf("failed to read asset: %w", err)
			}
			if written != size {
				return false, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
			}
			return false, nil
		}
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("reading checksum: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := writeFile(destPath, r, size); err != nil {
		return false, err
	}
	if err := writeFile(destPath+checksumSuffix, bytes.NewReader([]byte(checksum+"\n")), int64(len(checksum)+1)); err != nil {
		return false, err
	}
	return true, nil
}

// ValidateSetup verifies that the vault root is a writable directory.
func (v *FileSystemVault) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	probe, err := os.CreateTemp(v.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("vault root not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// writeFile writes r to destPath through a temp file and rename.
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Name returns the vault name.
func (v *FileSystemVault) Name() string { return v.name }
