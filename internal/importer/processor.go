package importer

import (
	"context"

	"import-data/internal/model"
)

// Assignment is the result of distributing photo batches over events.
type Assignment struct {
	ByEvent           map[string][]model.Photo
	Assigned          int
	Unassigned        int
	UnassignedBatches []string
}

// PhotoAssigner decides which event each photo batch belongs to.
type PhotoAssigner interface {
	Assign(payload model.PhotosPayload) Assignment
}

// EventProcessor writes upstream events into the content tree.
type EventProcessor interface {
	// BuildIndex scans existing event directories. It is called once per run,
	// before the first ProcessEvent.
	BuildIndex() (*SlugIndex, error)

	// ProcessEvent writes one event, its cover and its gallery.
	ProcessEvent(ctx context.Context, idx *SlugIndex, groupID string, ev model.Event, photos []model.Photo) (EventResult, error)
}

// VenueProcessor writes upstream venues into the content tree.
type VenueProcessor interface {
	// BuildIndex scans existing venue directories.
	BuildIndex() (*SlugIndex, error)

	// ProcessVenue writes one venue and its maps.
	ProcessVenue(ctx context.Context, idx *SlugIndex, v model.Venue, overwrite MapOverwrite) (VenueResult, error)
}

// GalleryProcessor maintains the gallery directory of one event.
type GalleryProcessor interface {
	ProcessGallery(ctx context.Context, eventDir string, photos []model.Photo) (GalleryStats, error)
}

// MapGenerator renders the static maps of one venue. Failures are reported
// through MapStats, never as an error.
type MapGenerator interface {
	GenerateMaps(ctx context.Context, venueDir string, lat, lng float64, overwrite MapOverwrite) MapStats
}
