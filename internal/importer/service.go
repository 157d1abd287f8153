package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"import-data/internal/model"
)

var commitPattern = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

// ValidCommit reports whether sha looks like an abbreviated or full git SHA.
func ValidCommit(sha string) bool {
	return commitPattern.MatchString(sha)
}

// ServiceConfig holds the paths and tunables the orchestrator needs.
type ServiceConfig struct {
	EventsPath   string // upstream path of events.json
	PhotosPath   string // upstream path of photos.json
	ContentDir   string
	ManifestPath string
	EndBuffer    time.Duration
}

// Options are the per-run choices made on the command line.
type Options struct {
	Repo          string // "owner/name"; empty keeps the configured repository
	Commit        string // empty resolves the latest commit
	OverwriteMaps MapOverwrite
}

// Service is the orchestration layer that sequences one import run: resolve
// the commit, fetch the payloads, write events and venues, write the manifest.
type Service struct {
	cfg      ServiceConfig
	source   Source
	assigner PhotoAssigner
	events   EventProcessor
	venues   VenueProcessor
	history  History // optional
	vault    Vault   // optional
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewService creates a new Service. history and vault may be nil.
func NewService(cfg ServiceConfig, source Source, assigner PhotoAssigner, events EventProcessor, venues VenueProcessor, history History, vault Vault, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		cfg:      cfg,
		source:   source,
		assigner: assigner,
		events:   events,
		venues:   venues,
		history:  history,
		vault:    vault,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// Run performs one import. Per-item failures are folded into the returned
// Stats; an error means the run was aborted and no manifest was written for it.
func (s *Service) Run(ctx context.Context, opts Options) (*Stats, error) {
	start := s.clock.Now()
	stats := &Stats{RunID: s.idgen.New()}
	run := s.startRun(stats.RunID, start)

	contentHash, err := s.run(ctx, opts, stats)
	stats.Duration = s.clock.Now().Sub(start)
	s.finishRun(run, stats, contentHash, err)

	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) run(ctx context.Context, opts Options, stats *Stats) (string, error) {
	// 1. Resolve the commit.
	commit, err := s.resolveCommit(ctx, opts)
	if err != nil {
		return "", err
	}
	stats.Commit = commit.SHA

	// 2. Pin repository and ref for every relative fetch that follows.
	s.source.Pin(opts.Repo, commit.SHA)
	s.logger.Info("importing", "repo", s.source.Repo(), "commit", commit.SHA)

	// 3. Fetch both payloads concurrently, keeping the raw text for hashing.
	eventsRaw, photosRaw, err := s.fetchPayloads(ctx)
	if err != nil {
		return "", err
	}
	contentHash := ContentHash(eventsRaw, photosRaw)

	var events model.EventsPayload
	if err := json.Unmarshal([]byte(eventsRaw), &events); err != nil {
		return contentHash, E(KindDecode, "parsing "+s.cfg.EventsPath, err)
	}
	var photos model.PhotosPayload
	if err := json.Unmarshal([]byte(photosRaw), &photos); err != nil {
		return contentHash, E(KindDecode, "parsing "+s.cfg.PhotosPath, err)
	}

	// 4. Assign photo batches before any event needs its photos.
	assignment := s.assigner.Assign(photos)
	stats.PhotoBatches = BatchStats{Assigned: assignment.Assigned, Unassigned: assignment.Unassigned}
	stats.UnassignedBatches = assignment.UnassignedBatches

	// 5. Events, sequentially in upstream order.
	upcoming, err := s.processEvents(ctx, events, assignment, stats)
	if err != nil {
		return contentHash, err
	}

	// 6. Venues, sequentially.
	if err := s.processVenues(ctx, events.Venues, opts.OverwriteMaps, stats); err != nil {
		return contentHash, err
	}

	// 7. Manifest.
	var nextPtr *UpcomingEvent
	if next, ok := NextEvent(upcoming, s.clock.Now(), s.cfg.EndBuffer); ok {
		nextPtr = &next
	}
	manifest := NewManifest(commit, contentHash, s.source.RepoURL(), nextPtr, s.cfg.EndBuffer)
	written, err := WriteManifest(s.cfg.ManifestPath, manifest)
	if err != nil {
		return contentHash, E(KindIO, "writing manifest", err)
	}
	if written {
		s.logger.Info("manifest written", "path", s.cfg.ManifestPath, "contentHash", contentHash, "nextEvent", manifest.NextEventSlug)
	} else {
		s.logger.Info("manifest unchanged", "path", s.cfg.ManifestPath)
	}

	// Mirror images to the asset vault when one is configured.
	if s.vault != nil {
		assets, err := s.publishAssets(ctx)
		stats.Assets = assets
		if err != nil {
			if ctx.Err() != nil {
				return contentHash, err
			}
			s.logger.Warn("mirroring assets failed", "error", err)
		}
	}

	return contentHash, nil
}

func (s *Service) resolveCommit(ctx context.Context, opts Options) (Commit, error) {
	if opts.Commit != "" {
		if !ValidCommit(opts.Commit) {
			return Commit{}, E(KindInvalidRecord, "resolving commit", fmt.Errorf("invalid commit SHA %q", opts.Commit))
		}
		return Commit{SHA: opts.Commit, Date: s.clock.Now()}, nil
	}

	commit, err := s.source.LatestCommit(ctx, opts.Repo)
	if err != nil {
		return Commit{}, fmt.Errorf("resolving latest commit: %w", err)
	}
	return commit, nil
}

func (s *Service) fetchPayloads(ctx context.Context) (string, string, error) {
	var eventsRaw, photosRaw string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := s.source.FetchRawContent(gctx, s.cfg.EventsPath)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", s.cfg.EventsPath, err)
		}
		eventsRaw = text
		return nil
	})
	g.Go(func() error {
		text, err := s.source.FetchRawContent(gctx, s.cfg.PhotosPath)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", s.cfg.PhotosPath, err)
		}
		photosRaw = text
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return eventsRaw, photosRaw, nil
}

func (s *Service) processEvents(ctx context.Context, payload model.EventsPayload, assignment Assignment, stats *Stats) ([]UpcomingEvent, error) {
	idx, err := s.events.BuildIndex()
	if err != nil {
		return nil, fmt.Errorf("indexing events: %w", err)
	}
	s.logger.Info("event index built", "existing", idx.Len())

	var upcoming []UpcomingEvent
	for _, group := range payload.Groups {
		for _, ev := range group.Value.Events {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			id := ev.ID.String()
			res, err := s.events.ProcessEvent(ctx, idx, group.Key, ev, assignment.ByEvent[id])
			if err != nil {
				if IsKind(err, KindInvalidRecord) {
					s.logger.Warn("skipping event", "id", id, "error", err)
					stats.Events.Failed++
					continue
				}
				return nil, fmt.Errorf("processing event %s: %w", id, err)
			}

			if !idx.Add(id, res.Slug) {
				s.logger.Warn("event id already mapped to another directory", "id", id, "slug", res.Slug)
			}
			stats.Events.Record(res.Outcome)
			stats.Covers.Record(res.Cover)
			stats.Gallery.Add(res.Gallery)
			s.logger.Debug("event processed", "slug", res.Slug, "outcome", res.Outcome)

			upcoming = append(upcoming, UpcomingEvent{
				Slug:      res.Slug,
				Start:     time.UnixMilli(ev.Time),
				Duration:  time.Duration(ev.Duration) * time.Millisecond,
				Cancelled: ev.IsCancelled,
			})
		}
	}

	s.logger.Info("events processed",
		"created", stats.Events.Created, "updated", stats.Events.Updated,
		"unchanged", stats.Events.Unchanged, "failed", stats.Events.Failed)
	return upcoming, nil
}

func (s *Service) processVenues(ctx context.Context, venues []model.Venue, overwrite MapOverwrite, stats *Stats) error {
	idx, err := s.venues.BuildIndex()
	if err != nil {
		return fmt.Errorf("indexing venues: %w", err)
	}

	for _, v := range venues {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := s.venues.ProcessVenue(ctx, idx, v, overwrite)
		if err != nil {
			if IsKind(err, KindInvalidRecord) {
				s.logger.Warn("skipping venue", "id", v.ID, "error", err)
				stats.Venues.Failed++
				continue
			}
			return fmt.Errorf("processing venue %s: %w", v.ID, err)
		}

		stats.Venues.Record(res.Outcome)
		stats.Maps.Add(res.Maps)
	}

	s.logger.Info("venues processed",
		"created", stats.Venues.Created, "updated", stats.Venues.Updated,
		"unchanged", stats.Venues.Unchanged, "failed", stats.Venues.Failed,
		"mapsGenerated", stats.Maps.Generated, "mapsFailed", stats.Maps.Failed)
	return nil
}

// startRun records a running import. History problems never stop an import.
func (s *Service) startRun(runID string, start time.Time) *ImportRun {
	if s.history == nil {
		return nil
	}
	if _, err := s.history.AbandonStaleRuns(start); err != nil {
		s.logger.Warn("checking for interrupted import runs failed", "error", err)
	}
	run := &ImportRun{
		RunID:      runID,
		Repository: s.source.Repo(),
		Status:     "running",
		StartedAt:  start,
	}
	if err := s.history.CreateImportRun(run); err != nil {
		s.logger.Warn("recording import run failed", "error", err)
		return nil
	}
	return run
}

func (s *Service) finishRun(run *ImportRun, stats *Stats, contentHash string, runErr error) {
	if run == nil {
		return
	}

	finished := s.clock.Now()
	run.FinishedAt = &finished
	run.Repository = s.source.Repo()
	run.CommitSHA = stats.Commit
	run.ContentHash = contentHash
	run.Status = "success"
	if runErr != nil {
		run.Status = "error"
		run.Error = runErr.Error()
		if errors.Is(runErr, context.Canceled) {
			run.Status = "cancelled"
		}
	}
	if data, err := json.Marshal(stats); err == nil {
		run.Stats = string(data)
	}

	if err := s.history.FinishImportRun(run); err != nil {
		s.logger.Warn("finishing import run record failed", "error", err)
	}
}
