package vault

import (
	"context"
	"testing"

	"import-data/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VaultConfig
		wantErr bool
	}{
		{name: "memory vault", cfg: config.VaultConfig{Type: "memory", Name: "test"}},
		{name: "filesystem vault", cfg: config.VaultConfig{Type: "filesystem", Name: "fs", FSVaultRoot: t.TempDir()}},
		{name: "filesystem vault without root", cfg: config.VaultConfig{Type: "filesystem", Name: "fs"}, wantErr: true},
		{name: "s3 vault without bucket", cfg: config.VaultConfig{Type: "s3", Name: "cdn"}, wantErr: true},
		{name: "unknown type", cfg: config.VaultConfig{Type: "ftp"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVaultFromConfig(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && got != nil {
				t.Error("NewVaultFromConfig() should return nil on error")
			}
			if !tt.wantErr && got == nil {
				t.Error("NewVaultFromConfig() returned nil")
			}
		})
	}
}
