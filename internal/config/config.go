package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // features.timezone must resolve on hosts without zoneinfo

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for import-data.
type Config struct {
	GitHub   GitHubConfig   `toml:"github"`
	Paths    PathsConfig    `toml:"paths"`
	Features FeaturesConfig `toml:"features"`
	Maps     MapsConfig     `toml:"maps"`
	Photos   PhotosConfig   `toml:"photos"`
	Content  ContentConfig  `toml:"content"`
	Database DatabaseConfig `toml:"database"`
	Vaults   []VaultConfig  `toml:"vaults"`
}

// GitHubConfig locates the upstream data repository.
type GitHubConfig struct {
	Repo       string   `toml:"repo"` // "owner/name"
	Ref        string   `toml:"ref"`
	EventsPath string   `toml:"events_path"`
	PhotosPath string   `toml:"photos_path"`
	APIBaseURL string   `toml:"api_base_url"`
	RawBaseURL string   `toml:"raw_base_url"`
	UserAgent  string   `toml:"user_agent"`
	Token      string   `toml:"token,omitempty"` // usually from GITHUB_TOKEN
	Timeout    Duration `toml:"timeout"`
}

// PathsConfig holds the local output locations.
type PathsConfig struct {
	ContentDir string `toml:"content_dir"`
	EventsDir  string `toml:"events_dir"`
	VenuesDir  string `toml:"venues_dir"`
	MetaFile   string `toml:"meta_file"`
	LogDir     string `toml:"log_dir,omitempty"`
}

// FeaturesConfig holds processing tunables.
type FeaturesConfig struct {
	ParallelDownloads int      `toml:"parallel_downloads"`
	MaxImageWidth     int      `toml:"max_image_width"`
	ImageQuality      int      `toml:"image_quality"`
	Timezone          string   `toml:"timezone"`
	EventEndBuffer    Duration `toml:"event_end_buffer"`
}

// MapsConfig selects tile providers and map geometry.
type MapsConfig struct {
	LightProvider string `toml:"light_provider"`
	DarkProvider  string `toml:"dark_provider"`
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	Zoom          int    `toml:"zoom"`
	JPEGQuality   int    `toml:"jpeg_quality"`
	APIKey        string `toml:"api_key,omitempty"` // usually from STADIA_MAPS_API_KEY
}

// PhotosConfig holds manual photo batch assignments.
type PhotosConfig struct {
	// Patches maps a batch timestamp to the event id it belongs to, for
	// batches upstream never assigned.
	Patches map[string]string `toml:"patches"`
}

// ContentConfig holds content validation settings.
type ContentConfig struct {
	KnownLinkKeys []string `toml:"known_link_keys"`
}

// VaultConfig represents configuration for an asset mirror.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores
	// Static credentials; when empty the default AWS credential chain is used.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// Duration is a time.Duration written as text ("30m") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// NewConfig creates a Config holding every default.
func NewConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			Repo:       "tokyo-meetup/meetup-data",
			Ref:        "main",
			EventsPath: "events.json",
			PhotosPath: "photos.json",
			APIBaseURL: "https://api.github.com",
			RawBaseURL: "https://raw.githubusercontent.com",
			UserAgent:  "import-data",
			Timeout:    Duration{30 * time.Second},
		},
		Paths: PathsConfig{
			ContentDir: "content",
			EventsDir:  filepath.Join("content", "events"),
			VenuesDir:  filepath.Join("content", "venues"),
			MetaFile:   filepath.Join("content", "meta.json"),
		},
		Features: FeaturesConfig{
			ParallelDownloads: 5,
			MaxImageWidth:     1600,
			ImageQuality:      80,
			Timezone:          "Asia/Tokyo",
			EventEndBuffer:    Duration{30 * time.Minute},
		},
		Maps: MapsConfig{
			LightProvider: "stadia-alidade-smooth",
			DarkProvider:  "stadia-alidade-smooth-dark",
			Width:         800,
			Height:        400,
			Zoom:          16,
			JPEGQuality:   85,
		},
		Photos: PhotosConfig{
			Patches: map[string]string{
				"1676970780777": "291352411",
			},
		},
		Content: ContentConfig{
			KnownLinkKeys: []string{"youtube", "slides", "github", "connpass", "luma", "doorkeeper", "discord", "website"},
		},
		Database: DatabaseConfig{Type: "none"},
	}
}

// ApplyEnv copies secrets from the environment into cfg. It is called once at
// process start; nothing else reads the environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if key := getenv("STADIA_MAPS_API_KEY"); key != "" {
		cfg.Maps.APIKey = key
	}
	if token := getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	var errs []error
	if c.GitHub.Repo == "" {
		errs = append(errs, errors.New("github.repo must be set"))
	}
	if c.Features.ParallelDownloads < 1 {
		errs = append(errs, fmt.Errorf("features.parallel_downloads must be positive, got %d", c.Features.ParallelDownloads))
	}
	if c.Features.MaxImageWidth < 1 {
		errs = append(errs, fmt.Errorf("features.max_image_width must be positive, got %d", c.Features.MaxImageWidth))
	}
	if c.Features.ImageQuality < 1 || c.Features.ImageQuality > 100 {
		errs = append(errs, fmt.Errorf("features.image_quality must be 1-100, got %d", c.Features.ImageQuality))
	}
	if _, err := time.LoadLocation(c.Features.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("features.timezone: %w", err))
	}
	if c.Maps.Width < 1 || c.Maps.Height < 1 {
		errs = append(errs, fmt.Errorf("maps size must be positive, got %dx%d", c.Maps.Width, c.Maps.Height))
	}
	if c.Maps.JPEGQuality < 1 || c.Maps.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("maps.jpeg_quality must be 1-100, got %d", c.Maps.JPEGQuality))
	}
	return errors.Join(errs...)
}

// Location returns the timezone event times are written in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Features.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Features.Timezone, err)
	}
	return loc, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Keys missing from the
// input keep their defaults. A [photos.patches] table replaces the default
// patches rather than adding to them.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := NewConfig()
	defaultPatches := cfg.Photos.Patches
	cfg.Photos.Patches = nil

	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if !md.IsDefined("photos", "patches") {
		cfg.Photos.Patches = defaultPatches
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config at path, falling back to defaults when the file
// does not exist.
func Load(path string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewConfig(), nil
	}
	return cfg, err
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. Secrets are never written.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	clean := *cfg
	clean.GitHub.Token = ""
	clean.Maps.APIKey = ""
	clean.Vaults = nil
	for _, v := range cfg.Vaults {
		v.S3AccessKeyID = ""
		v.S3SecretAccessKey = ""
		clean.Vaults = append(clean.Vaults, v)
	}

	if err := writeToFile(path, &clean); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
