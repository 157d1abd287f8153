package maps

import (
	"context"
	"image"
	"image/color"

	sm "github.com/flopp/go-staticmaps"
	"github.com/golang/geo/s2"
)

// Renderer composes a map image from tiles.
type Renderer interface {
	Render(ctx context.Context, provider Provider, opts Options) (image.Image, error)
}

// markerColor is the venue pin color.
var markerColor = color.RGBA{R: 0xe0, G: 0x3a, B: 0x3e, A: 0xff}

// StaticMapsRenderer renders with go-staticmaps, downloading tiles over HTTP.
type StaticMapsRenderer struct{}

// NewStaticMapsRenderer creates the production Renderer.
func NewStaticMapsRenderer() *StaticMapsRenderer {
	return &StaticMapsRenderer{}
}

// Render draws a map centered on the venue with a single marker.
func (r *StaticMapsRenderer) Render(ctx context.Context, provider Provider, opts Options) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	center := s2.LatLngFromDegrees(opts.Lat, opts.Lng)

	m := sm.NewContext()
	m.SetSize(opts.Width, opts.Height)
	m.SetZoom(opts.Zoom)
	m.SetCenter(center)
	m.SetTileProvider(&sm.TileProvider{
		Name:        provider.Name,
		Attribution: provider.Attribution,
		TileSize:    provider.TileSize,
		URLPattern:  provider.URLPattern,
		Shards:      provider.Shards,
	})
	m.AddObject(sm.NewMarker(center, markerColor, 16.0))

	return m.Render()
}
