package maps

import (
	"net/url"
	"sort"
	"strings"
)

// apiKeyPlaceholder marks where a provider's URL pattern takes the API key.
const apiKeyPlaceholder = "{apiKey}"

// Provider describes a raster tile server. URLPattern is formatted with
// shard (%[1]s), zoom (%[2]d), x (%[3]d) and y (%[4]d).
type Provider struct {
	Name        string
	Attribution string
	URLPattern  string
	Shards      []string
	TileSize    int
	RequiresKey bool
}

// Providers is the table of supported tile providers by config name.
var Providers = map[string]Provider{
	"stadia-alidade-smooth": {
		Name:        "stadia-alidade-smooth",
		Attribution: "© Stadia Maps © OpenMapTiles © OpenStreetMap",
		URLPattern:  "https://tiles.stadiamaps.com/tiles/alidade_smooth/%[2]d/%[3]d/%[4]d.png?api_key=" + apiKeyPlaceholder,
		TileSize:    256,
		RequiresKey: true,
	},
	"stadia-alidade-smooth-dark": {
		Name:        "stadia-alidade-smooth-dark",
		Attribution: "© Stadia Maps © OpenMapTiles © OpenStreetMap",
		URLPattern:  "https://tiles.stadiamaps.com/tiles/alidade_smooth_dark/%[2]d/%[3]d/%[4]d.png?api_key=" + apiKeyPlaceholder,
		TileSize:    256,
		RequiresKey: true,
	},
	"osm": {
		Name:        "osm",
		Attribution: "© OpenStreetMap contributors",
		URLPattern:  "https://%[1]s.tile.openstreetmap.org/%[2]d/%[3]d/%[4]d.png",
		Shards:      []string{"a", "b", "c"},
		TileSize:    256,
	},
	"carto-light": {
		Name:        "carto-light",
		Attribution: "© CARTO © OpenStreetMap contributors",
		URLPattern:  "https://%[1]s.basemaps.cartocdn.com/light_all/%[2]d/%[3]d/%[4]d.png",
		Shards:      []string{"a", "b", "c", "d"},
		TileSize:    256,
	},
	"carto-dark": {
		Name:        "carto-dark",
		Attribution: "© CARTO © OpenStreetMap contributors",
		URLPattern:  "https://%[1]s.basemaps.cartocdn.com/dark_all/%[2]d/%[3]d/%[4]d.png",
		Shards:      []string{"a", "b", "c", "d"},
		TileSize:    256,
	},
}

// ProviderNames returns the supported provider names, sorted.
func ProviderNames() []string {
	names := make([]string, 0, len(Providers))
	for name := range Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// keylessNames returns the providers usable without an API key.
func keylessNames() []string {
	var names []string
	for _, name := range ProviderNames() {
		if !Providers[name].RequiresKey {
			names = append(names, name)
		}
	}
	return names
}

// WithKey returns p with apiKey substituted into its URL pattern.
func (p Provider) WithKey(apiKey string) Provider {
	// The pattern goes through fmt, so a literal % must be doubled.
	escaped := strings.ReplaceAll(url.QueryEscape(apiKey), "%", "%%")
	p.URLPattern = strings.ReplaceAll(p.URLPattern, apiKeyPlaceholder, escaped)
	return p
}
