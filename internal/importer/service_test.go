package importer_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"import-data/internal/importer"
	"import-data/internal/model"
	"import-data/internal/testutil"
)

const (
	eventsPath = "data/events.json"
	photosPath = "data/photos.json"
)

// fakeAssigner assigns each batch by its explicit event field only.
type fakeAssigner struct{}

func (fakeAssigner) Assign(p model.PhotosPayload) importer.Assignment {
	a := importer.Assignment{ByEvent: make(map[string][]model.Photo)}
	for _, b := range p.Groups {
		if b.Value.Event == "" {
			a.Unassigned++
			a.UnassignedBatches = append(a.UnassignedBatches, b.Key)
			continue
		}
		a.Assigned++
		a.ByEvent[b.Value.Event.String()] = append(a.ByEvent[b.Value.Event.String()], b.Value.Photos...)
	}
	return a
}

type eventCall struct {
	group  string
	id     string
	photos int
}

type fakeEvents struct {
	calls   []eventCall
	errs    map[string]error
	outcome importer.Outcome
	index   *importer.SlugIndex
}

func (f *fakeEvents) BuildIndex() (*importer.SlugIndex, error) {
	f.index = importer.NewSlugIndex()
	return f.index, nil
}

func (f *fakeEvents) ProcessEvent(ctx context.Context, idx *importer.SlugIndex, groupID string, ev model.Event, photos []model.Photo) (importer.EventResult, error) {
	f.calls = append(f.calls, eventCall{group: groupID, id: ev.ID.String(), photos: len(photos)})
	if err := f.errs[ev.ID.String()]; err != nil {
		return importer.EventResult{}, err
	}
	slug := ev.ID.String() + "-event"
	if existing, ok := idx.Lookup(ev.ID.String()); ok {
		slug = existing
	}
	return importer.EventResult{
		ContentResult: importer.ContentResult{Slug: slug, Outcome: f.outcome},
		Cover:         importer.CoverExisting,
		Gallery:       importer.GalleryStats{Downloaded: len(photos)},
	}, nil
}

type fakeVenues struct {
	ids       []string
	overwrite importer.MapOverwrite
	errs      map[string]error
}

func (f *fakeVenues) BuildIndex() (*importer.SlugIndex, error) {
	return importer.NewSlugIndex(), nil
}

func (f *fakeVenues) ProcessVenue(ctx context.Context, idx *importer.SlugIndex, v model.Venue, overwrite importer.MapOverwrite) (importer.VenueResult, error) {
	f.ids = append(f.ids, v.ID.String())
	f.overwrite = overwrite
	if err := f.errs[v.ID.String()]; err != nil {
		return importer.VenueResult{}, err
	}
	return importer.VenueResult{
		ContentResult: importer.ContentResult{Slug: v.ID.String() + "-venue", Outcome: importer.Created},
		Maps:          importer.MapStats{Generated: 2},
	}, nil
}

type fixture struct {
	source  *testutil.FakeSource
	events  *fakeEvents
	venues  *fakeVenues
	clock   *testutil.StubClock
	history importer.History
	vault   importer.Vault
	dir     string
	cfg     importer.ServiceConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	source := testutil.NewFakeSource("tokyodev/data", importer.Commit{
		SHA:  "0123456789abcdef0123456789abcdef01234567",
		Date: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	})
	source.SetFile(eventsPath, eventsJSON)
	source.SetFile(photosPath, photosJSON)

	return &fixture{
		source: source,
		events: &fakeEvents{errs: map[string]error{}, outcome: importer.Created},
		venues: &fakeVenues{errs: map[string]error{}},
		clock:  testutil.FixedClock(),
		dir:    dir,
		cfg: importer.ServiceConfig{
			EventsPath:   eventsPath,
			PhotosPath:   photosPath,
			ContentDir:   dir,
			ManifestPath: filepath.Join(dir, "meta.json"),
			EndBuffer:    30 * time.Minute,
		},
	}
}

func (f *fixture) service() *importer.Service {
	return importer.NewService(f.cfg, f.source, fakeAssigner{}, f.events, f.venues, f.history, f.vault,
		importer.NewNopLogger(), f.clock, testutil.NewStubIDGenerator())
}

// The fixed clock is 2024-01-15 10:30 UTC.
const eventsJSON = `{
  "groups": {
    "7": {"city": "Tokyo", "events": [
      {"id": "100", "title": "Past", "time": 1704067200000, "duration": 7200000},
      {"id": "101", "title": "Long", "time": 1705399200000, "duration": 36000000}
    ]},
    "3": {"city": "Tokyo", "events": [
      {"id": 102, "title": "Short", "time": 1705402800000, "duration": 3600000}
    ]}
  },
  "venues": [{"id": "9", "name": "Office"}, {"id": "8", "name": "Cafe"}]
}`

const photosJSON = `{"groups": {
  "b1": {"event": "101", "timestamp": 1, "photos": [{"location": "a.jpg"}, {"location": "b.jpg"}]},
  "b2": {"timestamp": 2, "photos": [{"location": "c.jpg"}]}
}}`

func readManifest(t *testing.T, path string) importer.Manifest {
	t.Helper()
	var m importer.Manifest
	if err := json.Unmarshal([]byte(testutil.ReadFile(t, path)), &m); err != nil {
		t.Fatalf("decoding manifest: %v", err)
	}
	return m
}

func TestService_Run(t *testing.T) {
	t.Run("processes everything in upstream order", func(t *testing.T) {
		f := newFixture(t)

		stats, err := f.service().Run(context.Background(), importer.Options{})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		want := []eventCall{{"7", "100", 0}, {"7", "101", 2}, {"3", "102", 0}}
		if len(f.events.calls) != len(want) {
			t.Fatalf("ProcessEvent calls = %v, want %v", f.events.calls, want)
		}
		for i := range want {
			if f.events.calls[i] != want[i] {
				t.Errorf("call %d = %+v, want %+v", i, f.events.calls[i], want[i])
			}
		}
		if len(f.venues.ids) != 2 || f.venues.ids[0] != "9" || f.venues.ids[1] != "8" {
			t.Errorf("venues = %v, want [9 8]", f.venues.ids)
		}

		if stats.Events.Created != 3 || stats.Venues.Created != 2 {
			t.Errorf("created events/venues = %d/%d, want 3/2", stats.Events.Created, stats.Venues.Created)
		}
		if stats.Maps.Generated != 4 {
			t.Errorf("maps generated = %d, want 4", stats.Maps.Generated)
		}
		if stats.PhotoBatches.Assigned != 1 || stats.PhotoBatches.Unassigned != 1 {
			t.Errorf("batches = %+v, want 1 assigned 1 unassigned", stats.PhotoBatches)
		}
		if len(stats.UnassignedBatches) != 1 || stats.UnassignedBatches[0] != "b2" {
			t.Errorf("unassigned batches = %v, want [b2]", stats.UnassignedBatches)
		}
		if stats.Gallery.Downloaded != 2 || stats.Covers.Existing != 3 {
			t.Errorf("gallery/covers = %+v/%+v", stats.Gallery, stats.Covers)
		}
		if stats.RunID != "run-1" {
			t.Errorf("RunID = %q, want run-1", stats.RunID)
		}
		if f.events.index.Len() != 3 {
			t.Errorf("slug index holds %d ids, want 3", f.events.index.Len())
		}
	})

	t.Run("writes manifest with raw content hash and next event", func(t *testing.T) {
		f := newFixture(t)

		if _, err := f.service().Run(context.Background(), importer.Options{}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		m := readManifest(t, f.cfg.ManifestPath)
		if m.ContentHash != testutil.SHA256Hex([]byte(eventsJSON+photosJSON)) {
			t.Errorf("ContentHash = %s, want sha256 of raw payloads", m.ContentHash)
		}
		if m.CommitHash != "0123456789abcdef0123456789abcdef01234567" {
			t.Errorf("CommitHash = %s", m.CommitHash)
		}
		if m.CommitDate != "2024-01-10T09:00:00.000Z" {
			t.Errorf("CommitDate = %s", m.CommitDate)
		}
		if m.Repository != "https://github.com/tokyodev/data" {
			t.Errorf("Repository = %s", m.Repository)
		}
		// 101 starts first but 102 ends first: 11:00+1h+30m = 12:30 UTC.
		if m.NextEventSlug != "102-event" {
			t.Errorf("NextEventSlug = %s, want 102-event", m.NextEventSlug)
		}
		if m.NextEventEnds != "2024-01-16T12:30:00.000Z" {
			t.Errorf("NextEventEnds = %s", m.NextEventEnds)
		}
	})

	t.Run("whitespace-only payload change changes the hash", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.service().Run(context.Background(), importer.Options{}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		first := readManifest(t, f.cfg.ManifestPath).ContentHash

		f.source.SetFile(photosPath, photosJSON+"\n")
		if _, err := f.service().Run(context.Background(), importer.Options{}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		second := readManifest(t, f.cfg.ManifestPath).ContentHash

		if first == second {
			t.Error("content hash did not change for reformatted payload")
		}
	})

	t.Run("custom commit skips lookup and pins ref", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service().Run(context.Background(), importer.Options{Repo: "other/repo", Commit: "abc1234"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if f.source.LatestCalls != 0 {
			t.Errorf("LatestCommit called %d times, want 0", f.source.LatestCalls)
		}
		if f.source.Ref() != "abc1234" || f.source.Repo() != "other/repo" {
			t.Errorf("pinned %s@%s, want other/repo@abc1234", f.source.Repo(), f.source.Ref())
		}
		m := readManifest(t, f.cfg.ManifestPath)
		if m.CommitDate != "2024-01-15T10:30:00.000Z" {
			t.Errorf("CommitDate = %s, want clock time", m.CommitDate)
		}
	})

	t.Run("invalid custom commit aborts", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service().Run(context.Background(), importer.Options{Commit: "not-a-sha"})
		if err == nil {
			t.Fatal("Run() expected error for invalid commit")
		}
		if len(f.source.Fetched) != 0 {
			t.Errorf("fetched %v after invalid commit", f.source.Fetched)
		}
	})

	t.Run("payload fetch failure aborts without manifest", func(t *testing.T) {
		f := newFixture(t)
		f.source.Fail(photosPath, importer.E(importer.KindRateLimit, "fetching", errors.New("rate limit exceeded")))

		_, err := f.service().Run(context.Background(), importer.Options{})
		if !importer.IsKind(err, importer.KindRateLimit) {
			t.Fatalf("Run() error = %v, want rate-limit", err)
		}
		if len(f.events.calls) != 0 {
			t.Error("events processed after fetch failure")
		}
		if _, err := os.Stat(f.cfg.ManifestPath); !os.IsNotExist(err) {
			t.Error("manifest written after fetch failure")
		}
	})

	t.Run("malformed payload aborts", func(t *testing.T) {
		f := newFixture(t)
		f.source.SetFile(eventsPath, "{not json")

		_, err := f.service().Run(context.Background(), importer.Options{})
		if !importer.IsKind(err, importer.KindDecode) {
			t.Fatalf("Run() error = %v, want decode", err)
		}
	})

	t.Run("invalid records are counted and skipped", func(t *testing.T) {
		f := newFixture(t)
		f.events.errs["100"] = importer.E(importer.KindInvalidRecord, "event 100", errors.New("bad id"))
		f.venues.errs["9"] = importer.E(importer.KindInvalidRecord, "venue 9", errors.New("bad id"))

		stats, err := f.service().Run(context.Background(), importer.Options{})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if stats.Events.Failed != 1 || stats.Events.Created != 2 {
			t.Errorf("events = %+v, want 1 failed 2 created", stats.Events)
		}
		if stats.Venues.Failed != 1 || stats.Venues.Created != 1 {
			t.Errorf("venues = %+v, want 1 failed 1 created", stats.Venues)
		}
		if !stats.Failed() {
			t.Error("Failed() = false, want true")
		}
	})

	t.Run("content write failure aborts", func(t *testing.T) {
		f := newFixture(t)
		f.events.errs["101"] = importer.E(importer.KindIO, "writing event", errors.New("disk full"))

		_, err := f.service().Run(context.Background(), importer.Options{})
		if !importer.IsKind(err, importer.KindIO) {
			t.Fatalf("Run() error = %v, want io", err)
		}
		if len(f.venues.ids) != 0 {
			t.Error("venues processed after fatal event error")
		}
	})

	t.Run("passes overwrite option to venues", func(t *testing.T) {
		f := newFixture(t)

		if _, err := f.service().Run(context.Background(), importer.Options{OverwriteMaps: importer.OverwriteDark}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if f.venues.overwrite != importer.OverwriteDark {
			t.Errorf("overwrite = %q, want dark", f.venues.overwrite)
		}
	})

	t.Run("records run history", func(t *testing.T) {
		f := newFixture(t)
		f.history = testutil.NewTestDatabase(t)

		if _, err := f.service().Run(context.Background(), importer.Options{}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		f.source.Fail(eventsPath, errors.New("connection refused"))
		if _, err := f.service().Run(context.Background(), importer.Options{}); err == nil {
			t.Fatal("second Run() expected error")
		}

		runs, err := f.history.ListImportRuns(10)
		if err != nil {
			t.Fatalf("ListImportRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("got %d runs, want 2", len(runs))
		}
		statuses := map[string]bool{runs[0].Status: true, runs[1].Status: true}
		if !statuses["success"] || !statuses["error"] {
			t.Errorf("statuses = %v, want success and error", statuses)
		}
		for _, r := range runs {
			if r.FinishedAt == nil {
				t.Errorf("run %s not finished", r.RunID)
			}
			if r.Status == "success" && r.ContentHash == "" {
				t.Error("successful run has no content hash")
			}
			if r.Status == "error" && r.Error == "" {
				t.Error("failed run has no error text")
			}
		}
	})

	t.Run("mirrors images to vault", func(t *testing.T) {
		f := newFixture(t)
		v := testutil.NewTestVault()
		f.vault = v
		testutil.WriteFile(t, filepath.Join(f.dir, "events", "1-a", "cover.jpg"), []byte("cover"))
		testutil.WriteFile(t, filepath.Join(f.dir, "events", "1-a", "gallery", "p.webp"), []byte("photo"))
		testutil.WriteFile(t, filepath.Join(f.dir, "events", "1-a", "event.md"), []byte("---\n---\n"))

		stats, err := f.service().Run(context.Background(), importer.Options{})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if stats.Assets.Uploaded != 2 {
			t.Errorf("uploaded = %d, want 2", stats.Assets.Uploaded)
		}
		if !v.Has("events/1-a/gallery/p.webp") {
			t.Error("gallery image not mirrored")
		}

		stats, err = f.service().Run(context.Background(), importer.Options{})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if stats.Assets.Uploaded != 0 || stats.Assets.Unchanged != 2 {
			t.Errorf("second run assets = %+v, want 2 unchanged", stats.Assets)
		}
	})

	t.Run("cancelled context stops processing", func(t *testing.T) {
		f := newFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.service().Run(ctx, importer.Options{Commit: "abc1234"})
		if err == nil {
			t.Fatal("Run() expected error for cancelled context")
		}
		if len(f.events.calls) != 0 {
			t.Errorf("processed %d events after cancellation", len(f.events.calls))
		}
	})
}
