package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"import-data/internal/fs"
)

// assetPatterns selects the files mirrored to the asset vault.
var assetPatterns = []string{"*.webp", "*.jpg", "*.jpeg", "*.png", "*.gif"}

// publishAssets mirrors every image under the content directory to the vault,
// keyed by its slash-separated path relative to the content directory.
// Per-asset failures are counted, never returned.
func (s *Service) publishAssets(ctx context.Context) (AssetStats, error) {
	var stats AssetStats

	files, err := fs.NewMatcher(assetPatterns).MatchFiles(s.cfg.ContentDir)
	if err != nil {
		return stats, E(KindIO, "listing assets", err)
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rel, err := filepath.Rel(s.cfg.ContentDir, path)
		if err != nil {
			stats.Failed++
			continue
		}
		key := filepath.ToSlash(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("reading asset failed", "key", key, "error", err)
			stats.Failed++
			continue
		}
		sum := sha256.Sum256(data)

		uploaded, err := s.vault.PutAsset(ctx, key, bytes.NewReader(data), int64(len(data)), hex.EncodeToString(sum[:]))
		if err != nil {
			s.logger.Warn("mirroring asset failed", "key", key, "error", err)
			stats.Failed++
			continue
		}
		if uploaded {
			s.logger.Debug("asset mirrored", "key", key)
			stats.Uploaded++
		} else {
			stats.Unchanged++
		}
	}

	s.logger.Info("assets mirrored", "uploaded", stats.Uploaded, "unchanged", stats.Unchanged, "failed", stats.Failed)
	return stats, nil
}
