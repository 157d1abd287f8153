package content

import (
	"context"
	"path/filepath"

	"import-data/internal/importer"
	"import-data/internal/markdown"
	"import-data/internal/model"
)

// VenueFile is the markdown file inside every venue directory.
const VenueFile = "venue.md"

// VenueProcessor writes upstream venues into <dir>/<slug>/venue.md and
// renders their static maps.
type VenueProcessor struct {
	dir    string
	maps   importer.MapGenerator
	cities *CityNormalizer
	logger importer.Logger
}

var _ importer.VenueProcessor = (*VenueProcessor)(nil)

// NewVenueProcessor creates a VenueProcessor.
func NewVenueProcessor(dir string, maps importer.MapGenerator, logger importer.Logger) *VenueProcessor {
	return &VenueProcessor{
		dir:    dir,
		maps:   maps,
		cities: NewCityNormalizer(logger),
		logger: logger,
	}
}

// BuildIndex scans existing venue directories by their meetupId. Venue slugs
// are always recomputed; the index only detects renames.
func (p *VenueProcessor) BuildIndex() (*importer.SlugIndex, error) {
	return buildIndex(p.dir, VenueFile, p.logger)
}

// VenueSlug returns the directory name of a venue.
func VenueSlug(v model.Venue) string {
	return MakeSlug(v.ID.String(), firstNonEmpty(v.Name, v.Address, "venue"))
}

type venueLayout struct {
	p *VenueProcessor
}

var _ Layout[model.Venue] = venueLayout{}

func (s venueLayout) Slug(v model.Venue) (string, error) { return VenueSlug(v), nil }

func (s venueLayout) ContentPath(slug string) string {
	return filepath.Join(s.p.dir, slug, VenueFile)
}

// Body is empty: venue files carry no upstream prose, so hand-written
// bodies survive.
func (s venueLayout) Body(model.Venue) string { return "" }

func (s venueLayout) Frontmatter(v model.Venue) (markdown.Fields, error) {
	meetupID, err := v.ID.Int()
	if err != nil {
		return nil, importer.E(importer.KindInvalidRecord, "venue "+v.ID.String(), err)
	}
	var coords any
	if v.HasCoordinates() {
		coords = markdown.Fields{
			{Key: "lat", Value: *v.Lat},
			{Key: "lng", Value: *v.Lng},
		}
	}
	return markdown.Fields{
		{Key: "title", Value: firstNonEmpty(v.Name, v.Address, "venue")},
		{Key: "city", Value: optional(s.p.cities.Normalize(v.City))},
		{Key: "address", Value: optional(v.Address)},
		{Key: "state", Value: optional(v.State)},
		{Key: "gmaps", Value: optional(v.Gmaps)},
		{Key: "coordinates", Value: coords},
		{Key: "meetupId", Value: meetupID},
	}, nil
}

// ProcessVenue writes one venue and generates its maps. A venue without
// coordinates counts every map theme as failed.
func (p *VenueProcessor) ProcessVenue(ctx context.Context, idx *importer.SlugIndex, v model.Venue, overwrite importer.MapOverwrite) (importer.VenueResult, error) {
	if _, err := v.ID.Int(); err != nil {
		return importer.VenueResult{}, importer.E(importer.KindInvalidRecord, "venue "+v.ID.String(), err)
	}

	slug := VenueSlug(v)
	if existing, ok := idx.Lookup(v.ID.String()); ok && existing != slug {
		p.logger.Warn("venue directory name changed; the old directory is no longer updated",
			"meetupId", v.ID, "old", existing, "new", slug)
	}

	content, err := Process[model.Venue](venueLayout{p: p}, v)
	if err != nil {
		return importer.VenueResult{}, err
	}
	result := importer.VenueResult{ContentResult: content}

	if !v.HasCoordinates() {
		p.logger.Warn("venue has no coordinates; skipping maps", "venue", v.ID, "slug", slug)
		result.Maps = importer.MapStats{Failed: len(importer.Themes)}
		return result, nil
	}
	result.Maps = p.maps.GenerateMaps(ctx, filepath.Join(p.dir, slug), *v.Lat, *v.Lng, overwrite)
	return result, nil
}
