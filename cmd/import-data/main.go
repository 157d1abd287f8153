package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"import-data/internal/app"
	"import-data/internal/cleaner"
	"import-data/internal/config"
	"import-data/internal/importer"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err, !term.IsTerminal(int(os.Stderr.Fd())))
		stop()
		os.Exit(1)
	}
}

// printError writes err to w. With trace set every wrapped cause is listed
// on its own line.
func printError(w io.Writer, err error, trace bool) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if !trace {
		return
	}
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(w, "  caused by: %v\n", e)
	}
}

// loadConfig reads the config file, applies environment secrets and
// validates the result.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	path := defaults["config_path"]

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("reading config: %w", err)
	}
	config.ApplyEnv(cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// newApp loads the config and creates an App. The caller must defer a.Close().
func newApp(verbose bool) (*app.App, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// bareOverwrite is what pflag hands to Set for a bare --overwrite-maps. It
// also renders the flag's usage as --overwrite-maps[=light|dark].
const bareOverwrite = "light|dark"

// mapThemeFlag is the value of --overwrite-maps. Invalid themes are
// rejected while flags are parsed.
type mapThemeFlag struct {
	v importer.MapOverwrite
}

func (f *mapThemeFlag) String() string { return string(f.v) }
func (f *mapThemeFlag) Type() string   { return "theme" }

func (f *mapThemeFlag) Set(s string) error {
	if s == bareOverwrite {
		f.v = importer.OverwriteAll
		return nil
	}
	v, err := importer.ParseMapOverwrite(s)
	if err != nil {
		return err
	}
	f.v = v
	return nil
}

func clearTypesHelp() string {
	var b strings.Builder
	b.WriteString("Valid clear types:\n")
	for _, s := range cleaner.Strategies {
		fmt.Fprintf(&b, "  %-15s %s\n", s.Name, s.Description)
	}
	fmt.Fprintf(&b, "  %-15s %s\n", cleaner.EmptyDirs, "remove empty directories only")
	fmt.Fprintf(&b, "  %-15s %s\n", cleaner.All, "everything above")
	return b.String()
}

func newRootCmd() *cobra.Command {
	var (
		overwrite mapThemeFlag
		repo      string
		commit    string
		verbose   bool
	)

	rootCmd := &cobra.Command{
		Use:   "import-data",
		Short: "Import meetup events, venues and photos into site content",
		Long: "Imports events, venues and photos from the upstream data repository into\n" +
			"markdown content, gallery images and venue maps.\n\n" + clearTypesHelp(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Import(cmd.Context(), importer.Options{
				Repo:          repo,
				Commit:        commit,
				OverwriteMaps: overwrite.v,
			})
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			stats.Print(cmd.OutOrStdout())
			return nil
		},
	}
	rootCmd.Flags().Var(&overwrite, "overwrite-maps", "regenerate existing venue maps: both themes when bare, or only light / dark")
	rootCmd.Flags().Lookup("overwrite-maps").NoOptDefVal = bareOverwrite
	rootCmd.Flags().StringVar(&repo, "repo", "", "upstream repository as owner/repo (default from config)")
	rootCmd.Flags().StringVar(&commit, "commit", "", "import a specific commit SHA instead of the latest")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")

	rootCmd.AddCommand(newClearCmd(&verbose))
	rootCmd.AddCommand(newHistoryCmd(&verbose))
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func newClearCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "clear TYPE",
		Short: "Delete generated content",
		Long:  "Deletes generated content below the events and venues directories.\n\n" + clearTypesHelp(),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Clear(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d file(s), removed %d empty director(ies)\n", res.FilesDeleted, res.DirsRemoved)
			return nil
		},
	}
}

func newHistoryCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "View recent import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := newApp(*verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.History(limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func printHistory(w io.Writer, runs []*importer.ImportRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No import runs recorded.")
		return
	}
	for _, r := range runs {
		duration := ""
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
		}
		sha := r.CommitSHA
		if len(sha) > 12 {
			sha = sha[:12]
		}
		fmt.Fprintf(w, "#%d  %s  %-9s  %-12s  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			sha,
			duration,
		)
		if r.Error != "" {
			fmt.Fprintf(w, "    %s\n", r.Error)
		}
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config file holding the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := app.GetDefaults()
			if err != nil {
				return fmt.Errorf("failed to get defaults: %w", err)
			}

			cfg := config.NewConfig()
			cfg.Paths.LogDir = defaults["log_dir"]
			cfg.Database = config.DatabaseConfig{Type: "sqlite", DataDir: defaults["base_dir"]}

			if err := config.Init(defaults["config_path"], cfg); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration initialized at %s\n", defaults["config_path"])
			fmt.Fprintf(out, "Run history: %s\n", defaults["base_dir"])
			fmt.Fprintf(out, "Log Dir:     %s\n", defaults["log_dir"])
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			redact(cfg)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# Configuration from %s\n\n", path)
			m := &config.Manager{}
			return m.Write(out, cfg)
		},
	})
	return configCmd
}

// redact hides secrets before a config is printed.
func redact(cfg *config.Config) {
	const mask = "********"
	if cfg.GitHub.Token != "" {
		cfg.GitHub.Token = mask
	}
	if cfg.Maps.APIKey != "" {
		cfg.Maps.APIKey = mask
	}
	for i := range cfg.Vaults {
		if cfg.Vaults[i].S3SecretAccessKey != "" {
			cfg.Vaults[i].S3SecretAccessKey = mask
		}
	}
}
