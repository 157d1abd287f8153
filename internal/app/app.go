package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"import-data/internal/cleaner"
	"import-data/internal/config"
	"import-data/internal/content"
	"import-data/internal/database"
	"import-data/internal/github"
	"import-data/internal/importer"
	"import-data/internal/maps"
	"import-data/internal/photos"
	"import-data/internal/vault"
)

// ErrHistoryDisabled is returned by History when no run history database is
// configured.
var ErrHistoryDisabled = errors.New("run history is disabled (set database.type to sqlite or memory)")

// Options control how the App is constructed.
type Options struct {
	Verbose bool
	// Stderr receives log lines. Defaults to os.Stderr.
	Stderr io.Writer
}

// App is the application layer between the CLI and the importer service.
// It constructs all dependencies from config and owns the resources that
// must be released on Close.
type App struct {
	cfg     *config.Config
	runID   string
	logger  importer.Logger
	logFile *os.File
	history importer.History
}

// fixedID hands the App's run ID to the service so log lines and the
// history row share it.
type fixedID string

func (f fixedID) New() string { return string(f) }

// New creates an App from cfg. The caller must call Close when done.
func New(cfg *config.Config, opts Options) (*App, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	runID := importer.UUIDGenerator{}.New()
	logger, logFile, err := newLogger(cfg.Paths.LogDir, runID, level, stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	history, err := database.NewHistoryFromConfig(cfg.Database, log)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("opening run history: %w", err)
	}

	return &App{
		cfg:     cfg,
		runID:   runID,
		logger:  log,
		logFile: logFile,
		history: history,
	}, nil
}

// RunID identifies this process in log lines and run history.
func (a *App) RunID() string {
	return a.runID
}

// Import runs one import with the given per-run options.
func (a *App) Import(ctx context.Context, opts importer.Options) (*importer.Stats, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}

	client := github.NewClient(a.cfg.GitHub, a.logger)
	gallery := photos.NewService(client, a.cfg.Features, a.logger)
	mapsSvc := maps.NewService(a.cfg.Maps, maps.NewStaticMapsRenderer(), a.logger)

	events := content.NewEventProcessor(a.cfg.Paths.EventsDir, loc, a.cfg.Content.KnownLinkKeys, client, gallery, a.logger)
	venues := content.NewVenueProcessor(a.cfg.Paths.VenuesDir, mapsSvc, a.logger)

	v, err := a.openVault(ctx)
	if err != nil {
		return nil, err
	}

	svc := importer.NewService(importer.ServiceConfig{
		EventsPath:   a.cfg.GitHub.EventsPath,
		PhotosPath:   a.cfg.GitHub.PhotosPath,
		ContentDir:   a.cfg.Paths.ContentDir,
		ManifestPath: a.cfg.Paths.MetaFile,
		EndBuffer:    a.cfg.Features.EventEndBuffer.Duration,
	}, client, photos.NewAssigner(a.cfg.Photos.Patches, a.logger), events, venues,
		a.history, v, a.logger, importer.RealClock{}, fixedID(a.runID))

	return svc.Run(ctx, opts)
}

// openVault returns the first configured vault, or nil when none is
// configured or it fails validation. A vault that cannot be reached only
// disables mirroring for this run.
func (a *App) openVault(ctx context.Context) (importer.Vault, error) {
	if len(a.cfg.Vaults) == 0 {
		return nil, nil
	}
	vc := a.cfg.Vaults[0]
	v, err := vault.NewVaultFromConfig(ctx, vc)
	if err != nil {
		return nil, fmt.Errorf("creating vault %q: %w", vc.Name, err)
	}
	if err := v.ValidateSetup(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("vault unavailable, skipping asset mirror", "vault", vc.Name, "error", err)
		return nil, nil
	}
	return v, nil
}

// Clear deletes generated content of the given type.
func (a *App) Clear(target string) (cleaner.Result, error) {
	c := cleaner.New(a.cfg.Paths.EventsDir, a.cfg.Paths.VenuesDir, a.logger)
	return c.Clear(target)
}

// History returns the most recent import runs, newest first.
func (a *App) History(limit int) ([]*importer.ImportRun, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	return a.history.ListImportRuns(limit)
}

// Close releases the history database and log file.
func (a *App) Close() error {
	var firstErr error
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			firstErr = fmt.Errorf("closing run history: %w", err)
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
