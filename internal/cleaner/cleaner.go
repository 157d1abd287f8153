// Package cleaner deletes generated content so it can be imported afresh.
package cleaner

import (
	"fmt"
	"os"
	"strings"

	"import-data/internal/fs"
	"import-data/internal/importer"
)

// root names a content directory a strategy works on.
type root int

const (
	eventsRoot root = iota
	venuesRoot
)

// Strategy deletes files matching Patterns below each of its roots.
type Strategy struct {
	Name        string
	Description string
	Patterns    []string
	roots       []root
}

var imagePatterns = []string{"*.webp", "*.jpg", "*.jpeg", "*.png", "*.gif"}

// Strategies lists the named clear targets in help order.
var Strategies = []Strategy{
	{Name: "markdown", Description: "event.md and venue.md files", Patterns: []string{"*.md"}, roots: []root{eventsRoot, venuesRoot}},
	{Name: "events", Description: "everything under the events directory", Patterns: []string{"*"}, roots: []root{eventsRoot}},
	{Name: "venues", Description: "everything under the venues directory", Patterns: []string{"*"}, roots: []root{venuesRoot}},
	{Name: "image-files", Description: "event covers and gallery images", Patterns: imagePatterns, roots: []root{eventsRoot}},
	{Name: "image-metadata", Description: "gallery caption sidecars", Patterns: []string{"*.yaml"}, roots: []root{eventsRoot}},
	{Name: "images", Description: "image-files and image-metadata", Patterns: append(append([]string{}, imagePatterns...), "*.yaml"), roots: []root{eventsRoot}},
	{Name: "maps", Description: "venue map.jpg and map-dark.jpg", Patterns: []string{"map.jpg", "map-dark.jpg"}, roots: []root{venuesRoot}},
}

const (
	// EmptyDirs only removes empty directories.
	EmptyDirs = "empty-dirs"
	// All runs every strategy and then removes empty directories.
	All = "all"
)

// Types returns every accepted clear target.
func Types() []string {
	types := make([]string, 0, len(Strategies)+2)
	for _, s := range Strategies {
		types = append(types, s.Name)
	}
	return append(types, EmptyDirs, All)
}

// Result counts what a clear removed.
type Result struct {
	FilesDeleted int
	DirsRemoved  int
}

// Cleaner clears generated content below the events and venues directories.
// The directories themselves are never removed.
type Cleaner struct {
	eventsDir string
	venuesDir string
	logger    importer.Logger
}

// New creates a Cleaner.
func New(eventsDir, venuesDir string, logger importer.Logger) *Cleaner {
	return &Cleaner{eventsDir: eventsDir, venuesDir: venuesDir, logger: logger}
}

func (c *Cleaner) dir(r root) string {
	if r == venuesRoot {
		return c.venuesDir
	}
	return c.eventsDir
}

// Clear runs the named target.
func (c *Cleaner) Clear(target string) (Result, error) {
	var res Result
	switch target {
	case EmptyDirs:
	case All:
		for _, s := range Strategies {
			n, err := c.deleteMatching(s)
			res.FilesDeleted += n
			if err != nil {
				return res, err
			}
		}
	default:
		s, ok := lookup(target)
		if !ok {
			return res, fmt.Errorf("invalid clear type %q: valid types are %s", target, strings.Join(Types(), ", "))
		}
		n, err := c.deleteMatching(s)
		res.FilesDeleted += n
		if err != nil {
			return res, err
		}
	}

	res.DirsRemoved = fs.RemoveEmptyDirs(c.eventsDir) + fs.RemoveEmptyDirs(c.venuesDir)
	c.logger.Info("clear complete", "type", target, "files", res.FilesDeleted, "dirs", res.DirsRemoved)
	return res, nil
}

func lookup(name string) (Strategy, bool) {
	for _, s := range Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

func (c *Cleaner) deleteMatching(s Strategy) (int, error) {
	matcher := fs.NewMatcher(s.Patterns)
	deleted := 0
	for _, r := range s.roots {
		dir := c.dir(r)
		files, err := matcher.MatchFiles(dir)
		if err != nil {
			return deleted, fmt.Errorf("listing %s: %w", dir, err)
		}
		for _, f := range files {
			if err := os.Remove(f); err != nil {
				return deleted, fmt.Errorf("deleting %s: %w", f, err)
			}
			c.logger.Debug("deleted", "path", f)
			deleted++
		}
	}
	return deleted, nil
}
