package importer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Counts tallies content files by outcome.
type Counts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Record counts one outcome.
func (c *Counts) Record(o Outcome) {
	switch o {
	case Created:
		c.Created++
	case Updated:
		c.Updated++
	default:
		c.Unchanged++
	}
}

// BatchStats tallies photo batch assignment.
type BatchStats struct {
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
}

// CoverStats tallies event cover images.
type CoverStats struct {
	Downloaded int `json:"downloaded"`
	Existing   int `json:"existing"`
	Failed     int `json:"failed"`
}

// Record counts one cover outcome.
func (c *CoverStats) Record(o CoverOutcome) {
	switch o {
	case CoverDownloaded:
		c.Downloaded++
	case CoverExisting:
		c.Existing++
	case CoverFailed:
		c.Failed++
	}
}

// AssetStats tallies assets mirrored to a vault.
type AssetStats struct {
	Uploaded  int `json:"uploaded"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Stats accumulates everything an import run did. It is only mutated by the
// goroutine running Service.Run.
type Stats struct {
	RunID             string        `json:"runId"`
	Commit            string        `json:"commit"`
	Events            Counts        `json:"events"`
	Venues            Counts        `json:"venues"`
	Maps              MapStats      `json:"maps"`
	PhotoBatches      BatchStats    `json:"photoBatches"`
	Gallery           GalleryStats  `json:"gallery"`
	Covers            CoverStats    `json:"covers"`
	Assets            AssetStats    `json:"assets"`
	UnassignedBatches []string      `json:"unassignedBatches,omitempty"`
	Duration          time.Duration `json:"duration"`
}

// Failed reports whether any per-item failure was recorded.
func (s *Stats) Failed() bool {
	return s.Events.Failed > 0 || s.Venues.Failed > 0 || s.Maps.Failed > 0 ||
		s.Gallery.Failed > 0 || s.Covers.Failed > 0 || s.Assets.Failed > 0
}

const (
	rowFormat = "%-16s %9s %9s %10s %8s\n"
	ruleWidth = 56
)

func n(v int) string { return fmt.Sprintf("%d", v) }

// Print writes the end-of-run summary table followed by warning blocks for
// anything that needs attention.
func (s *Stats) Print(w io.Writer) {
	rule := strings.Repeat("-", ruleWidth)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Import summary (commit %s, %s)\n", shortSHA(s.Commit), s.Duration.Truncate(time.Millisecond))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, rowFormat, "", "Created", "Updated", "Unchanged", "Failed")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, rowFormat, "Events", n(s.Events.Created), n(s.Events.Updated), n(s.Events.Unchanged), n(s.Events.Failed))
	fmt.Fprintf(w, rowFormat, "Venues", n(s.Venues.Created), n(s.Venues.Updated), n(s.Venues.Unchanged), n(s.Venues.Failed))
	fmt.Fprintf(w, rowFormat, "Maps", n(s.Maps.Generated), "-", n(s.Maps.Unchanged), n(s.Maps.Failed))
	fmt.Fprintf(w, rowFormat, "Photo batches", n(s.PhotoBatches.Assigned), "-", "-", n(s.PhotoBatches.Unassigned))
	fmt.Fprintf(w, rowFormat, "Gallery images", n(s.Gallery.Downloaded), "-", n(s.Gallery.Unchanged), n(s.Gallery.Failed))
	fmt.Fprintf(w, rowFormat, "Covers", n(s.Covers.Downloaded), "-", n(s.Covers.Existing), n(s.Covers.Failed))
	if s.Assets != (AssetStats{}) {
		fmt.Fprintf(w, rowFormat, "Mirrored assets", n(s.Assets.Uploaded), "-", n(s.Assets.Unchanged), n(s.Assets.Failed))
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Photo batches: assigned = created column, unassigned = failed column\n")
	if s.Gallery.Deleted > 0 || s.Gallery.Bytes > 0 {
		fmt.Fprintf(w, "Gallery: %d stale file(s) deleted, %s downloaded\n", s.Gallery.Deleted, humanize.Bytes(uint64(s.Gallery.Bytes)))
	}

	s.printWarnings(w)
}

func (s *Stats) printWarnings(w io.Writer) {
	if s.Events.Failed > 0 {
		fmt.Fprintf(w, "\nWARNING: %d event(s) could not be imported; see log for details.\n", s.Events.Failed)
	}
	if s.Venues.Failed > 0 {
		fmt.Fprintf(w, "\nWARNING: %d venue(s) could not be imported; see log for details.\n", s.Venues.Failed)
	}
	if s.Gallery.Failed > 0 {
		fmt.Fprintf(w, "\nWARNING: %d gallery image(s) failed to download or convert.\n", s.Gallery.Failed)
	}
	if s.Covers.Failed > 0 {
		fmt.Fprintf(w, "\nWARNING: %d cover image(s) failed to download.\n", s.Covers.Failed)
	}
	if s.PhotoBatches.Unassigned > 0 {
		fmt.Fprintf(w, "\nWARNING: %d photo batch(es) are not assigned to any event and were skipped:\n", s.PhotoBatches.Unassigned)
		for _, id := range s.UnassignedBatches {
			fmt.Fprintf(w, "  - %s\n", id)
		}
		fmt.Fprintln(w, "  Add an \"event\" field upstream or a [photos.patches] entry keyed by the batch timestamp.")
	}
	if s.Assets.Failed > 0 {
		fmt.Fprintf(w, "\nWARNING: %d asset(s) could not be mirrored to the vault.\n", s.Assets.Failed)
	}
	if s.Maps.Failed > 0 {
		fmt.Fprintf(w, "\nWARNING: %d map(s) failed to generate.\n", s.Maps.Failed)
		if s.Maps.Generated == 0 && s.Maps.Unchanged == 0 {
			fmt.Fprintln(w, "  Every map generation failed. This usually means:")
			fmt.Fprintln(w, "    - STADIA_MAPS_API_KEY is not set while a Stadia provider is configured, or")
			fmt.Fprintln(w, "    - maps.light_provider / maps.dark_provider name a provider that is unreachable.")
			if s.Maps.MissingAPIKey > 0 {
				fmt.Fprintln(w, "  Set STADIA_MAPS_API_KEY, or switch to a keyless provider such as \"carto-light\" / \"carto-dark\".")
			}
		}
	}
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
