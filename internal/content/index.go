package content

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"import-data/internal/importer"
	"import-data/internal/markdown"
)

// buildIndex maps the meetupId stored in dir/*/file to the directory name.
// When two directories claim the same id the first, in name order, wins.
func buildIndex(dir, file string, logger importer.Logger) (*importer.SlugIndex, error) {
	idx := importer.NewSlugIndex()

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, importer.E(importer.KindIO, "scanning "+dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name(), file)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, importer.E(importer.KindIO, "reading "+path, err)
		}

		doc, err := markdown.Parse(data)
		if err != nil {
			logger.Warn("skipping unreadable content file", "path", path, "error", err)
			continue
		}
		id := doc.Fields.String("meetupId")
		if id == "" {
			continue
		}
		if !idx.Add(id, entry.Name()) {
			kept, _ := idx.Lookup(id)
			logger.Warn("duplicate meetupId, keeping first directory",
				"meetupId", id, "kept", kept, "ignored", entry.Name())
		}
	}
	return idx, nil
}
