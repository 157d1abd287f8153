package maps

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"import-data/internal/config"
	"import-data/internal/importer"
	"import-data/internal/testutil"
)

type fakeRenderer struct {
	mu      sync.Mutex
	calls   []Options
	pattern []string
	err     error
}

func (f *fakeRenderer) Render(ctx context.Context, p Provider, opts Options) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	f.pattern = append(f.pattern, p.URLPattern)
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)), nil
}

func (f *fakeRenderer) themes() []importer.Theme {
	var out []importer.Theme
	for _, c := range f.calls {
		out = append(out, c.Theme)
	}
	return out
}

func testMapsConfig() config.MapsConfig {
	cfg := config.NewConfig().Maps
	cfg.APIKey = "k3y"
	cfg.Width = 40
	cfg.Height = 20
	return cfg
}

func TestService_Generate(t *testing.T) {
	t.Run("writes jpeg", func(t *testing.T) {
		r := &fakeRenderer{}
		svc := NewService(testMapsConfig(), r, importer.NewNopLogger())
		out := filepath.Join(t.TempDir(), "venue", "map.jpg")

		err := svc.Generate(context.Background(), out, Options{Lat: 35.68, Lng: 139.76, Width: 40, Height: 20, Zoom: 15, Theme: importer.ThemeLight})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		f, err := os.Open(out)
		if err != nil {
			t.Fatalf("opening map: %v", err)
		}
		defer f.Close()
		img, err := jpeg.Decode(f)
		if err != nil {
			t.Fatalf("decoding map: %v", err)
		}
		if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
			t.Errorf("map size = %v", img.Bounds())
		}
		if !strings.Contains(r.pattern[0], "alidade_smooth/") || !strings.HasSuffix(r.pattern[0], "api_key=k3y") {
			t.Errorf("pattern = %q", r.pattern[0])
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := testMapsConfig()
		cfg.APIKey = ""
		r := &fakeRenderer{}
		svc := NewService(cfg, r, importer.NewNopLogger())

		err := svc.Generate(context.Background(), filepath.Join(t.TempDir(), "map.jpg"), Options{Theme: importer.ThemeDark})
		if !importer.IsKind(err, importer.KindMissingAPIKey) {
			t.Fatalf("Generate() error = %v, want missing-api-key", err)
		}
		if !strings.Contains(err.Error(), "STADIA_MAPS_API_KEY") || !strings.Contains(err.Error(), "carto-dark") {
			t.Errorf("error lacks remediation hint: %v", err)
		}
		if len(r.calls) != 0 {
			t.Error("renderer called without a key")
		}
	})

	t.Run("keyless provider needs no key", func(t *testing.T) {
		cfg := testMapsConfig()
		cfg.APIKey = ""
		cfg.LightProvider = "carto-light"
		svc := NewService(cfg, &fakeRenderer{}, importer.NewNopLogger())

		if err := svc.Generate(context.Background(), filepath.Join(t.TempDir(), "map.jpg"), Options{Width: 4, Height: 4, Theme: importer.ThemeLight}); err != nil {
			t.Errorf("Generate() error = %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := testMapsConfig()
		cfg.LightProvider = "nope"
		svc := NewService(cfg, &fakeRenderer{}, importer.NewNopLogger())

		err := svc.Generate(context.Background(), filepath.Join(t.TempDir(), "map.jpg"), Options{Theme: importer.ThemeLight})
		if err == nil || !strings.Contains(err.Error(), "osm") {
			t.Errorf("Generate() error = %v, want list of providers", err)
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want importer.Kind
	}{
		{"url error", &url.Error{Op: "Get", URL: "https://x", Err: errors.New("dial tcp: connection refused")}, importer.KindNetwork},
		{"wrapped connection refused", fmt.Errorf("fetching: %w", errors.New("connection refused")), importer.KindNetwork},
		{"tile status", errors.New("error fetching tile: status 401"), importer.KindTileServer},
		{"other", errors.New("image too large"), importer.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_GenerateMaps(t *testing.T) {
	existing := func(t *testing.T) string {
		t.Helper()
		dir := t.TempDir()
		testutil.WriteFile(t, filepath.Join(dir, "map.jpg"), []byte("light"))
		testutil.WriteFile(t, filepath.Join(dir, "map-dark.jpg"), []byte("dark"))
		return dir
	}

	tests := []struct {
		name          string
		overwrite     importer.MapOverwrite
		wantThemes    []importer.Theme
		wantGenerated int
		wantUnchanged int
	}{
		{"no overwrite keeps both", importer.OverwriteNone, nil, 0, 2},
		{"dark only regenerates dark", importer.OverwriteDark, []importer.Theme{importer.ThemeDark}, 1, 1},
		{"light only regenerates light", importer.OverwriteLight, []importer.Theme{importer.ThemeLight}, 1, 1},
		{"all regenerates both", importer.OverwriteAll, []importer.Theme{importer.ThemeLight, importer.ThemeDark}, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := existing(t)
			r := &fakeRenderer{}
			svc := NewService(testMapsConfig(), r, importer.NewNopLogger())

			stats := svc.GenerateMaps(context.Background(), dir, 35.0, 139.0, tt.overwrite)

			if stats.Generated != tt.wantGenerated || stats.Unchanged != tt.wantUnchanged || stats.Failed != 0 {
				t.Errorf("stats = %+v, want generated %d unchanged %d", stats, tt.wantGenerated, tt.wantUnchanged)
			}
			got := r.themes()
			if len(got) != len(tt.wantThemes) {
				t.Fatalf("rendered %v, want %v", got, tt.wantThemes)
			}
			for i := range got {
				if got[i] != tt.wantThemes[i] {
					t.Errorf("rendered %v, want %v", got, tt.wantThemes)
				}
			}
		})
	}

	t.Run("dark overwrite leaves light file untouched", func(t *testing.T) {
		dir := existing(t)
		svc := NewService(testMapsConfig(), &fakeRenderer{}, importer.NewNopLogger())

		svc.GenerateMaps(context.Background(), dir, 35.0, 139.0, importer.OverwriteDark)

		if got := testutil.ReadFile(t, filepath.Join(dir, "map.jpg")); got != "light" {
			t.Errorf("map.jpg = %q, want untouched", got)
		}
		if got := testutil.ReadFile(t, filepath.Join(dir, "map-dark.jpg")); got == "dark" {
			t.Error("map-dark.jpg was not regenerated")
		}
	})

	t.Run("missing files are generated", func(t *testing.T) {
		dir := t.TempDir()
		svc := NewService(testMapsConfig(), &fakeRenderer{}, importer.NewNopLogger())

		stats := svc.GenerateMaps(context.Background(), dir, 35.0, 139.0, importer.OverwriteNone)
		if stats.Generated != 2 {
			t.Errorf("Generated = %d, want 2", stats.Generated)
		}
	})

	t.Run("failures are counted not returned", func(t *testing.T) {
		cfg := testMapsConfig()
		cfg.APIKey = ""
		svc := NewService(cfg, &fakeRenderer{}, importer.NewNopLogger())

		stats := svc.GenerateMaps(context.Background(), t.TempDir(), 35.0, 139.0, importer.OverwriteNone)
		if stats.Failed != 2 || stats.MissingAPIKey != 2 {
			t.Errorf("stats = %+v, want 2 failed for missing key", stats)
		}
	})

	t.Run("render errors are counted", func(t *testing.T) {
		r := &fakeRenderer{err: errors.New("error fetching tile: status 500")}
		svc := NewService(testMapsConfig(), r, importer.NewNopLogger())

		stats := svc.GenerateMaps(context.Background(), t.TempDir(), 35.0, 139.0, importer.OverwriteNone)
		if stats.Failed != 2 || stats.MissingAPIKey != 0 {
			t.Errorf("stats = %+v", stats)
		}
	})
}

func TestProvider_WithKey(t *testing.T) {
	p := Providers["stadia-alidade-smooth"].WithKey("a b%c")
	got := fmt.Sprintf(p.URLPattern, "", 1, 2, 3)
	if got != "https://tiles.stadiamaps.com/tiles/alidade_smooth/1/2/3.png?api_key=a+b%25c" {
		t.Errorf("formatted URL = %q", got)
	}
	if Providers["stadia-alidade-smooth"].URLPattern == p.URLPattern {
		t.Error("WithKey() modified the provider table")
	}
}
