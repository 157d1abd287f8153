package importer

import (
	"context"
	"io"
)

// Vault is a mirror for generated image assets (covers, gallery images, maps),
// typically object storage behind a CDN.
type Vault interface {
	// PutAsset stores the asset under key. The operation is idempotent by
	// checksum: it returns false without uploading when the stored asset
	// already has the same checksum. size is the number of bytes in r.
	PutAsset(ctx context.Context, key string, r io.Reader, size int64, checksum string) (bool, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
