package importer

import (
	"fmt"
	"time"
)

// Commit identifies the upstream revision an import runs against.
type Commit struct {
	SHA  string
	Date time.Time
}

// Outcome is what happened to a content file during an import.
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// ContentResult describes one written (or skipped) markdown file.
type ContentResult struct {
	Slug    string
	Path    string
	Outcome Outcome
}

// GalleryStats counts the work done on one or more event galleries.
type GalleryStats struct {
	Downloaded int
	Unchanged  int
	Failed     int
	Skipped    int // photos without a location
	Deleted    int // stale files removed
	Bytes      int64
}

// Add accumulates o into s.
func (s *GalleryStats) Add(o GalleryStats) {
	s.Downloaded += o.Downloaded
	s.Unchanged += o.Unchanged
	s.Failed += o.Failed
	s.Skipped += o.Skipped
	s.Deleted += o.Deleted
	s.Bytes += o.Bytes
}

// MapStats counts static-map generation results.
type MapStats struct {
	Generated     int
	Unchanged     int
	Failed        int
	MissingAPIKey int // subset of Failed
}

// Add accumulates o into s.
func (s *MapStats) Add(o MapStats) {
	s.Generated += o.Generated
	s.Unchanged += o.Unchanged
	s.Failed += o.Failed
	s.MissingAPIKey += o.MissingAPIKey
}

// CoverOutcome is what happened to an event's cover image.
type CoverOutcome int

const (
	CoverNone CoverOutcome = iota
	CoverExisting
	CoverDownloaded
	CoverFailed
)

// EventResult is the outcome of importing one event.
type EventResult struct {
	ContentResult
	Cover   CoverOutcome
	Gallery GalleryStats
}

// VenueResult is the outcome of importing one venue.
type VenueResult struct {
	ContentResult
	Maps MapStats
}

// Theme is a static map color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Themes lists the themes generated for every venue, in generation order.
var Themes = []Theme{ThemeLight, ThemeDark}

// MapOverwrite selects which existing venue maps are regenerated.
// The zero value regenerates nothing that already exists.
type MapOverwrite string

const (
	OverwriteNone  MapOverwrite = ""
	OverwriteAll   MapOverwrite = "all"
	OverwriteLight MapOverwrite = MapOverwrite(ThemeLight)
	OverwriteDark  MapOverwrite = MapOverwrite(ThemeDark)
)

// ParseMapOverwrite validates an explicit --overwrite-maps value. Only a
// single theme may be named; OverwriteAll is what the bare flag means.
func ParseMapOverwrite(s string) (MapOverwrite, error) {
	switch MapOverwrite(s) {
	case OverwriteLight, OverwriteDark:
		return MapOverwrite(s), nil
	default:
		return OverwriteNone, fmt.Errorf("invalid map theme %q: must be %q or %q", s, ThemeLight, ThemeDark)
	}
}

// Covers reports whether an existing map of the given theme should be regenerated.
func (o MapOverwrite) Covers(theme Theme) bool {
	return o == OverwriteAll || o == MapOverwrite(theme)
}
