package vault

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"import-data/internal/importer"
)

type memoryAsset struct {
	data     []byte
	checksum string
}

// MemoryVault keeps assets in memory. It is meant for tests and dry runs.
// Safe for concurrent use.
type MemoryVault struct {
	name    string
	assets  map[string]memoryAsset
	uploads int
	mu      sync.RWMutex
}

var _ importer.Vault = (*MemoryVault)(nil)

// NewMemoryVault creates an empty in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:   name,
		assets: make(map[string]memoryAsset),
	}
}

// PutAsset stores the asset unless key already holds checksum.
func (m *MemoryVault) PutAsset(ctx context.Context, key string, r io.Reader, size int64, checksum string) (bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return false, fmt.Errorf("failed to read asset: %w", err)
	}
	if int64(len(data)) != size {
		return false, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.assets[key]; ok && existing.checksum == checksum {
		return false, nil
	}
	m.assets[key] = memoryAsset{data: data, checksum: checksum}
	m.uploads++
	return true, nil
}

// Has reports whether an asset is stored under key.
func (m *MemoryVault) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.assets[key]
	return ok
}

// Get returns the bytes stored under key.
func (m *MemoryVault) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assets[key]
	return a.data, ok
}

// Keys returns every stored key, sorted.
func (m *MemoryVault) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.assets))
	for k := range m.assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Uploads returns how many PutAsset calls stored data.
func (m *MemoryVault) Uploads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploads
}

// ValidateSetup always succeeds for memory vaults.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Name returns the vault name.
func (m *MemoryVault) Name() string { return m.name }
