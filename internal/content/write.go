// Package content turns upstream events and venues into markdown files with
// frontmatter, keeping directory names stable across imports.
package content

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	ifs "import-data/internal/fs"
	"import-data/internal/importer"
	"import-data/internal/markdown"
)

// Layout describes how one kind of record maps onto a markdown file.
type Layout[T any] interface {
	Slug(item T) (string, error)
	Frontmatter(item T) (markdown.Fields, error)
	ContentPath(slug string) string
	Body(item T) string
}

// Process writes item through layout.
func Process[T any](layout Layout[T], item T) (importer.ContentResult, error) {
	slug, err := layout.Slug(item)
	if err != nil {
		return importer.ContentResult{}, err
	}
	fields, err := layout.Frontmatter(item)
	if err != nil {
		return importer.ContentResult{}, err
	}

	path := layout.ContentPath(slug)
	outcome, err := WriteContent(path, fields, layout.Body(item))
	if err != nil {
		return importer.ContentResult{}, err
	}
	return importer.ContentResult{Slug: slug, Path: path, Outcome: outcome}, nil
}

// WriteContent creates the markdown file at path, or merges fields into the
// existing one. Existing keys absent from fields survive, and an empty body
// keeps the existing body. The file is only rewritten when the rendered
// bytes differ from what is on disk.
func WriteContent(path string, fields markdown.Fields, body string) (importer.Outcome, error) {
	current, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return importer.Unchanged, importer.E(importer.KindIO, "reading "+path, err)
	}

	if err != nil {
		data, err := markdown.Document{Fields: fields, Body: body}.Render()
		if err != nil {
			return importer.Unchanged, importer.E(importer.KindInvalidRecord, "rendering "+path, err)
		}
		if err := ifs.WriteFileAtomic(path, data); err != nil {
			return importer.Unchanged, importer.E(importer.KindIO, "creating "+path, err)
		}
		return importer.Created, nil
	}

	existing, err := markdown.Parse(current)
	if err != nil {
		return importer.Unchanged, importer.E(importer.KindDecode, "parsing "+path, err)
	}

	merged := markdown.Document{
		Fields: markdown.Merge(existing.Fields, fields),
		Body:   body,
	}
	if strings.TrimSpace(body) == "" {
		merged.Body = existing.Body
	}

	data, err := merged.Render()
	if err != nil {
		return importer.Unchanged, importer.E(importer.KindInvalidRecord, "rendering "+path, err)
	}
	changed, err := ifs.WriteIfChanged(path, data)
	if err != nil {
		return importer.Unchanged, importer.E(importer.KindIO, "updating "+path, err)
	}
	if !changed {
		return importer.Unchanged, nil
	}
	return importer.Updated, nil
}
