package content

import (
	"context"
	"math"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"import-data/internal/fs"
	"import-data/internal/importer"
	"import-data/internal/markdown"
	"import-data/internal/model"
)

const (
	// EventFile is the markdown file inside every event directory.
	EventFile = "event.md"

	dateTimeLayout = "2006-01-02 15:04"
)

// EventProcessor writes upstream events into <dir>/<slug>/event.md together
// with their cover image and gallery.
type EventProcessor struct {
	dir        string
	loc        *time.Location
	knownLinks map[string]bool
	downloader importer.Downloader
	gallery    importer.GalleryProcessor
	logger     importer.Logger
}

var _ importer.EventProcessor = (*EventProcessor)(nil)

// NewEventProcessor creates an EventProcessor. Event times are rendered in
// loc; links whose key is not in knownLinkKeys are reported but kept.
func NewEventProcessor(dir string, loc *time.Location, knownLinkKeys []string, downloader importer.Downloader, gallery importer.GalleryProcessor, logger importer.Logger) *EventProcessor {
	known := make(map[string]bool, len(knownLinkKeys))
	for _, k := range knownLinkKeys {
		known[k] = true
	}
	return &EventProcessor{
		dir:        dir,
		loc:        loc,
		knownLinks: known,
		downloader: downloader,
		gallery:    gallery,
		logger:     logger,
	}
}

// BuildIndex scans existing event directories by their meetupId.
func (p *EventProcessor) BuildIndex() (*importer.SlugIndex, error) {
	return buildIndex(p.dir, EventFile, p.logger)
}

// eventRecord is one event plus everything derived from its surroundings.
type eventRecord struct {
	event model.Event
	group int64
	slug  string
	cover string // "./name" when a cover file is present
}

// eventLayout renders eventRecords.
type eventLayout struct {
	p *EventProcessor
}

var _ Layout[eventRecord] = eventLayout{}

func (s eventLayout) Slug(r eventRecord) (string, error) { return r.slug, nil }

func (s eventLayout) ContentPath(slug string) string {
	return filepath.Join(s.p.dir, slug, EventFile)
}

func (s eventLayout) Body(r eventRecord) string { return NormalizeBody(r.event.Description) }

func (s eventLayout) Frontmatter(r eventRecord) (markdown.Fields, error) {
	ev := r.event
	op := "event " + ev.ID.String()

	meetupID, err := ev.ID.Int()
	if err != nil {
		return nil, importer.E(importer.KindInvalidRecord, op, err)
	}
	var venue any
	if ev.Venue != "" {
		id, err := ev.Venue.Int()
		if err != nil {
			return nil, importer.E(importer.KindInvalidRecord, op+" venue", err)
		}
		venue = id
	}
	var duration any
	if ev.Duration > 0 {
		duration = int64(math.Round(float64(ev.Duration) / float64(time.Minute/time.Millisecond)))
	}
	var cover any
	if r.cover != "" {
		cover = r.cover
	}
	topics := ev.Topics
	if topics == nil {
		topics = []string{}
	}

	return markdown.Fields{
		{Key: "title", Value: ev.Title},
		{Key: "dateTime", Value: time.UnixMilli(ev.Time).In(s.p.loc).Format(dateTimeLayout)},
		{Key: "duration", Value: duration},
		{Key: "cover", Value: cover},
		{Key: "topics", Value: topics},
		{Key: "isCancelled", Value: ev.IsCancelled},
		{Key: "meetupId", Value: meetupID},
		{Key: "group", Value: r.group},
		{Key: "venue", Value: venue},
		{Key: "howToFindUs", Value: optional(ev.HowToFindUs)},
		{Key: "links", Value: s.p.links(op, ev.Links)},
	}, nil
}

// links passes every upstream link through, warning about keys that do
// not belong there.
func (p *EventProcessor) links(op string, links model.Ordered[string]) any {
	if len(links) == 0 {
		return nil
	}
	out := make(markdown.Fields, 0, len(links))
	for _, l := range links {
		switch {
		case l.Key == "meetup":
			p.logger.Warn("unexpected meetup link; it is derived from meetupId", "record", op)
		case !p.knownLinks[l.Key]:
			p.logger.Warn("unknown link key", "record", op, "key", l.Key)
		}
		out = append(out, markdown.Field{Key: l.Key, Value: l.Value})
	}
	return out
}

// ProcessEvent writes one event, fetches its cover once and updates its
// gallery. The directory comes from idx when the event was imported before.
func (p *EventProcessor) ProcessEvent(ctx context.Context, idx *importer.SlugIndex, groupID string, ev model.Event, photos []model.Photo) (importer.EventResult, error) {
	op := "event " + ev.ID.String()
	if _, err := ev.ID.Int(); err != nil {
		return importer.EventResult{}, importer.E(importer.KindInvalidRecord, op, err)
	}
	group, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return importer.EventResult{}, importer.E(importer.KindInvalidRecord, op+" group", err)
	}

	slug, ok := idx.Lookup(ev.ID.String())
	if !ok {
		slug = MakeSlug(ev.ID.String(), ev.Title)
	}
	eventDir := filepath.Join(p.dir, slug)

	rec := eventRecord{event: ev, group: group, slug: slug}
	var result importer.EventResult
	result.Cover, rec.cover = p.fetchCover(ctx, eventDir, ev)

	content, err := Process[eventRecord](eventLayout{p: p}, rec)
	if err != nil {
		return result, err
	}
	result.ContentResult = content

	gallery, err := p.gallery.ProcessGallery(ctx, eventDir, photos)
	result.Gallery = gallery
	return result, err
}

// fetchCover downloads the cover image unless a file of that name already
// exists. It returns the outcome and the frontmatter path, empty when the
// event has no usable cover.
func (p *EventProcessor) fetchCover(ctx context.Context, eventDir string, ev model.Event) (importer.CoverOutcome, string) {
	if ev.Image == nil || ev.Image.Location == "" {
		return importer.CoverNone, ""
	}
	name := path.Base(filepath.ToSlash(ev.Image.Location))
	target := filepath.Join(eventDir, name)
	ref := "./" + name

	size, err := fs.FileSize(target)
	if err != nil {
		p.logger.Warn("cover check failed", "event", ev.ID, "path", target, "error", err)
		return importer.CoverFailed, ""
	}
	if size >= 0 {
		if size == 0 {
			p.logger.Warn("existing cover is empty; delete it to download again", "event", ev.ID, "path", target)
		}
		return importer.CoverExisting, ref
	}

	data, err := p.downloader.DownloadFile(ctx, ev.Image.Location)
	if err != nil {
		p.logger.Warn("cover download failed", "event", ev.ID, "location", ev.Image.Location, "error", err)
		return importer.CoverFailed, ""
	}
	if err := fs.WriteFileAtomic(target, data); err != nil {
		p.logger.Warn("cover write failed", "event", ev.ID, "path", target, "error", err)
		return importer.CoverFailed, ""
	}
	p.logger.Debug("cover downloaded", "event", ev.ID, "path", target)
	return importer.CoverDownloaded, ref
}
