package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"import-data/internal/fs"
)

// isoMillis matches JavaScript's Date.toISOString, which the site reads.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Manifest is the content/meta.json document.
type Manifest struct {
	CommitHash    string `json:"commitHash"`
	CommitDate    string `json:"commitDate"`
	ContentHash   string `json:"contentHash"`
	Repository    string `json:"repository"`
	NextEventEnds string `json:"nextEventEnds,omitempty"`
	NextEventSlug string `json:"nextEventSlug,omitempty"`
}

// ContentHash returns the hex SHA-256 of the concatenated raw payloads.
// The raw upstream text is hashed, never a re-serialization of it.
func ContentHash(raw ...string) string {
	h := sha256.New()
	for _, r := range raw {
		h.Write([]byte(r))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// UpcomingEvent is the slice of an imported event needed to find the next one.
type UpcomingEvent struct {
	Slug      string
	Start     time.Time
	Duration  time.Duration
	Cancelled bool
}

// End returns when the event counts as finished.
func (e UpcomingEvent) End(buffer time.Duration) time.Time {
	return e.Start.Add(e.Duration).Add(buffer)
}

// NextEvent returns the non-cancelled event whose end (start + duration +
// buffer) is the soonest still after now. Ties keep the earlier entry.
func NextEvent(events []UpcomingEvent, now time.Time, buffer time.Duration) (UpcomingEvent, bool) {
	var next UpcomingEvent
	found := false
	for _, e := range events {
		if e.Cancelled || e.Slug == "" {
			continue
		}
		end := e.End(buffer)
		if !end.After(now) {
			continue
		}
		if !found || end.Before(next.End(buffer)) {
			next = e
			found = true
		}
	}
	return next, found
}

// NewManifest assembles the manifest for a run.
func NewManifest(commit Commit, contentHash, repoURL string, next *UpcomingEvent, buffer time.Duration) Manifest {
	m := Manifest{
		CommitHash:  commit.SHA,
		CommitDate:  commit.Date.UTC().Format(isoMillis),
		ContentHash: contentHash,
		Repository:  repoURL,
	}
	if next != nil {
		m.NextEventEnds = next.End(buffer).UTC().Format(isoMillis)
		m.NextEventSlug = next.Slug
	}
	return m
}

// WriteManifest writes m as indented JSON to path, leaving the file alone
// when its bytes already match. It reports whether the file was written.
func WriteManifest(path string, m Manifest) (bool, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')
	written, err := fs.WriteIfChanged(path, data)
	if err != nil {
		return false, fmt.Errorf("writing manifest: %w", err)
	}
	return written, nil
}
