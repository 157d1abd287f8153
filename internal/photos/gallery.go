package photos

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"import-data/internal/config"
	"import-data/internal/fs"
	"import-data/internal/imaging"
	"import-data/internal/importer"
	"import-data/internal/markdown"
	"import-data/internal/model"
)

// GalleryDir is the subdirectory of an event holding its photos.
const GalleryDir = "gallery"

// Service maintains event galleries: it downloads and converts photos,
// writes caption sidecars and removes files no photo refers to anymore.
type Service struct {
	downloader importer.Downloader
	parallel   int
	maxWidth   int
	quality    int
	logger     importer.Logger
}

// NewService creates a gallery Service.
func NewService(downloader importer.Downloader, cfg config.FeaturesConfig, logger importer.Logger) *Service {
	parallel := cfg.ParallelDownloads
	if parallel < 1 {
		parallel = 1
	}
	return &Service{
		downloader: downloader,
		parallel:   parallel,
		maxWidth:   cfg.MaxImageWidth,
		quality:    cfg.ImageQuality,
		logger:     logger,
	}
}

// FileName returns the gallery file name for a photo location: its base
// name with the extension replaced by .webp.
func FileName(location string) string {
	base := path.Base(filepath.ToSlash(location))
	return strings.TrimSuffix(base, path.Ext(base)) + ".webp"
}

// CaptionFile returns the sidecar name for a gallery file.
func CaptionFile(name string) string {
	return name + ".yaml"
}

type photoOutcome int

const (
	photoUnchanged photoOutcome = iota
	photoDownloaded
	photoFailed
)

type photoResult struct {
	outcome photoOutcome
	bytes   int64
}

// ProcessGallery brings <eventDir>/gallery in line with photos. Per-photo
// failures are counted in the returned stats; an error is returned only when
// the gallery directory itself cannot be managed or ctx is done.
func (s *Service) ProcessGallery(ctx context.Context, eventDir string, photos []model.Photo) (importer.GalleryStats, error) {
	var stats importer.GalleryStats
	galleryDir := filepath.Join(eventDir, GalleryDir)

	var valid []model.Photo
	for _, p := range photos {
		if p.Removed {
			continue
		}
		if p.Location == "" {
			s.logger.Warn("photo has no location", "event", filepath.Base(eventDir), "caption", p.Caption)
			stats.Skipped++
			continue
		}
		valid = append(valid, p)
	}

	if len(valid) > 0 {
		if err := os.MkdirAll(galleryDir, 0755); err != nil {
			return stats, importer.E(importer.KindIO, "creating gallery", err)
		}

		results := make([]photoResult, len(valid))
		for start := 0; start < len(valid); start += s.parallel {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			end := min(start+s.parallel, len(valid))

			var g errgroup.Group
			for i := start; i < end; i++ {
				g.Go(func() error {
					results[i] = s.processPhoto(ctx, galleryDir, valid[i])
					return nil
				})
			}
			g.Wait()
		}

		for i, r := range results {
			switch r.outcome {
			case photoDownloaded:
				stats.Downloaded++
				stats.Bytes += r.bytes
			case photoUnchanged:
				stats.Unchanged++
			case photoFailed:
				stats.Failed++
				continue
			}
			if valid[i].Caption != "" {
				s.writeCaption(galleryDir, valid[i])
			}
		}
	}

	deleted, err := s.removeStale(galleryDir, valid)
	stats.Deleted = deleted
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Service) processPhoto(ctx context.Context, galleryDir string, p model.Photo) photoResult {
	out := filepath.Join(galleryDir, FileName(p.Location))

	size, err := fs.FileSize(out)
	if err == nil && size > 0 {
		return photoResult{outcome: photoUnchanged}
	}
	if err == nil && size == 0 {
		s.logger.Debug("replacing empty gallery file", "path", out)
	}

	data, err := s.downloader.DownloadFile(ctx, p.Location)
	if err != nil {
		s.logger.Warn("photo download failed", "location", p.Location, "error", err)
		return photoResult{outcome: photoFailed}
	}

	converted, err := imaging.ToWebP(data, s.maxWidth, s.quality)
	if err != nil {
		s.logger.Warn("photo conversion failed", "location", p.Location, "error", err)
		return photoResult{outcome: photoFailed}
	}

	if err := fs.WriteFileAtomic(out, converted); err != nil {
		s.logger.Warn("writing photo failed", "path", out, "error", err)
		return photoResult{outcome: photoFailed}
	}

	s.logger.Debug("photo downloaded", "path", out, "bytes", len(converted))
	return photoResult{outcome: photoDownloaded, bytes: int64(len(converted))}
}

func (s *Service) writeCaption(galleryDir string, p model.Photo) {
	data, err := markdown.MarshalFields(markdown.Fields{{Key: "caption", Value: p.Caption}})
	if err != nil {
		s.logger.Warn("encoding caption failed", "location", p.Location, "error", err)
		return
	}
	sidecar := filepath.Join(galleryDir, CaptionFile(FileName(p.Location)))
	if _, err := fs.WriteIfChanged(sidecar, data); err != nil {
		s.logger.Warn("writing caption failed", "path", sidecar, "error", err)
	}
}

// removeStale deletes gallery files that belong to none of photos, then the
// gallery directory itself when it is left empty.
func (s *Service) removeStale(galleryDir string, photos []model.Photo) (int, error) {
	expected := make(map[string]bool, len(photos)*2)
	for _, p := range photos {
		name := FileName(p.Location)
		expected[name] = true
		if p.Caption != "" {
			expected[CaptionFile(name)] = true
		}
	}

	files, err := fs.FindFiles(galleryDir, false)
	if err != nil {
		return 0, importer.E(importer.KindIO, "listing gallery", err)
	}

	deleted := 0
	for _, f := range files {
		if expected[filepath.Base(f)] {
			continue
		}
		if err := os.Remove(f); err != nil {
			s.logger.Warn("removing stale gallery file failed", "path", f, "error", err)
			continue
		}
		s.logger.Debug("removed stale gallery file", "path", f)
		deleted++
	}

	entries, err := os.ReadDir(galleryDir)
	if err == nil && len(entries) == 0 {
		if err := os.Remove(galleryDir); err != nil {
			return deleted, importer.E(importer.KindIO, "removing empty gallery", fmt.Errorf("%s: %w", galleryDir, err))
		}
	}
	return deleted, nil
}

var _ importer.GalleryProcessor = (*Service)(nil)
