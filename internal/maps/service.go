// Package maps renders the static light and dark venue maps.
package maps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"net"
	"net/url"
	"path/filepath"
	"strings"

	"import-data/internal/config"
	"import-data/internal/fs"
	"import-data/internal/importer"
)

// Options describe one map image.
type Options struct {
	Lat    float64
	Lng    float64
	Width  int
	Height int
	Zoom   int
	Theme  importer.Theme
}

// FileName returns the file a theme's map is written to.
func FileName(theme importer.Theme) string {
	if theme == importer.ThemeDark {
		return "map-dark.jpg"
	}
	return "map.jpg"
}

// Service generates venue maps.
type Service struct {
	cfg      config.MapsConfig
	renderer Renderer
	logger   importer.Logger
}

// NewService creates a map Service.
func NewService(cfg config.MapsConfig, renderer Renderer, logger importer.Logger) *Service {
	return &Service{cfg: cfg, renderer: renderer, logger: logger}
}

// provider resolves the configured provider for theme.
func (s *Service) provider(theme importer.Theme) (Provider, error) {
	name := s.cfg.LightProvider
	if theme == importer.ThemeDark {
		name = s.cfg.DarkProvider
	}

	p, ok := Providers[name]
	if !ok {
		return Provider{}, fmt.Errorf("unknown map provider %q (valid: %s)", name, strings.Join(ProviderNames(), ", "))
	}
	if p.RequiresKey {
		if s.cfg.APIKey == "" {
			return Provider{}, importer.E(importer.KindMissingAPIKey, "map provider "+name,
				fmt.Errorf("API key required: set STADIA_MAPS_API_KEY or use a keyless provider (%s)", strings.Join(keylessNames(), ", ")))
		}
		p = p.WithKey(s.cfg.APIKey)
	}
	return p, nil
}

// Generate renders one map and writes it to outputPath as JPEG.
func (s *Service) Generate(ctx context.Context, outputPath string, opts Options) error {
	p, err := s.provider(opts.Theme)
	if err != nil {
		return err
	}

	img, err := s.renderer.Render(ctx, p, opts)
	if err != nil {
		return importer.E(classify(err), "rendering "+string(opts.Theme)+" map", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.cfg.JPEGQuality}); err != nil {
		return importer.E(importer.KindOther, "encoding map", err)
	}
	if err := fs.WriteFileAtomic(outputPath, buf.Bytes()); err != nil {
		return importer.E(importer.KindIO, "writing map", err)
	}
	return nil
}

// classify guesses why tile rendering failed from the error chain.
func classify(err error) importer.Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return importer.KindNetwork
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return importer.KindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"), strings.Contains(msg, "connection reset"):
		return importer.KindNetwork
	case strings.Contains(msg, "tile"), strings.Contains(msg, "status"):
		return importer.KindTileServer
	default:
		return importer.KindOther
	}
}

// GenerateMaps renders the light and dark maps of a venue. A theme is
// (re)generated when its file is missing or overwrite covers it. Failures
// are logged and counted, never returned.
func (s *Service) GenerateMaps(ctx context.Context, venueDir string, lat, lng float64, overwrite importer.MapOverwrite) importer.MapStats {
	var stats importer.MapStats

	for _, theme := range importer.Themes {
		out := filepath.Join(venueDir, FileName(theme))

		exists, err := fs.Exists(out)
		if err == nil && exists && !overwrite.Covers(theme) {
			stats.Unchanged++
			continue
		}

		err = s.Generate(ctx, out, Options{
			Lat:    lat,
			Lng:    lng,
			Width:  s.cfg.Width,
			Height: s.cfg.Height,
			Zoom:   s.cfg.Zoom,
			Theme:  theme,
		})
		if err != nil {
			stats.Failed++
			if importer.IsKind(err, importer.KindMissingAPIKey) {
				stats.MissingAPIKey++
			}
			s.logFailure(out, theme, err)
			continue
		}

		s.logger.Debug("map generated", "path", out, "theme", theme)
		stats.Generated++
	}

	return stats
}

func (s *Service) logFailure(path string, theme importer.Theme, err error) {
	switch importer.KindOf(err) {
	case importer.KindMissingAPIKey:
		s.logger.Warn("map skipped: provider needs an API key", "path", path, "theme", theme, "error", err)
	case importer.KindNetwork:
		s.logger.Warn("map failed: could not reach tile server", "path", path, "theme", theme, "error", err)
	case importer.KindTileServer:
		s.logger.Warn("map failed: tile server error", "path", path, "theme", theme, "error", err)
	default:
		s.logger.Warn("map failed", "path", path, "theme", theme, "error", err)
	}
}

var _ importer.MapGenerator = (*Service)(nil)
