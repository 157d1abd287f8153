package testutil

import (
	"import-data/internal/vault"
)

// NewTestVault creates a new in-memory asset vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault")
}
