package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/codetribute"
	"github.com/mozilla-frontend-infra/codetribute/internal/commands"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/config"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/kv"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/logging"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/styles"
	"github.com/mozilla-frontend-infra/codetribute/internal/data/stores"
	"github.com/mozilla-frontend-infra/codetribute/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() falls back
	// to runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser   func()
		app         = &codetribute.App{}
		sweepCancel context.CancelFunc
	)

	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "codetribute",
		Usage:     "Find good first bugs across Mozilla projects",
		UsageText: "codetribute [global options] command [command options]",
		Description: `Codetribute collects beginner-friendly GitHub issues and Bugzilla bugs for
a project, a programming language or a tag into one list you can filter
and sort.

Run 'codetribute projects' to see the participating projects.
Run 'codetribute browse --project KEY' to open the interactive browser.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("CODETRIBUTE_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to the state directory)",
				Sources:     cli.EnvVars("CODETRIBUTE_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("CODETRIBUTE_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "github-token",
				Usage:       "GitHub API token (overrides github.token from the config file)",
				Sources:     cli.EnvVars("CODETRIBUTE_GITHUB_TOKEN", "GITHUB_TOKEN"),
				Destination: &flags.GitHubToken,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.GitHubToken != "" {
				cfg.GitHub.Token = flags.GitHubToken
			}
			flags.Config = cfg

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.Theme)
			styles.SetTheme(palette)

			fsys, err := config.ProjectsFS(cfg.ProjectsDir)
			if err != nil {
				return ctx, fmt.Errorf("open projects: %w", err)
			}
			projects, err := config.LoadProjects(fsys)
			if err != nil {
				return ctx, fmt.Errorf("load projects: %w", err)
			}

			var cache kv.KV
			if cfg.Cache.IsEnabled() {
				kvStore := stores.NewKVStore()
				cache = kvStore

				// Start background KV sweep goroutine
				sweepCtx, cancel := context.WithCancel(context.Background())
				sweepCancel = cancel
				go stores.Sweep(sweepCtx, kvStore, cfg.Cache.SweepInterval)
			}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*app = *codetribute.NewApp(cfg, projects, cache)

			log.Debug().
				Str("config", flags.ConfigPath).
				Int("projects", len(projects)).
				Bool("cache", cache != nil).
				Msg("started")

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// Stop background sweep
			if sweepCancel != nil {
				sweepCancel()
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	root = commands.NewProjectsCmd(flags, app).Register(root)
	root = commands.NewTasksCmd(flags, app).Register(root)
	root = commands.NewBrowseCmd(flags, app).Register(root)
	root = commands.NewShowCmd(flags, app).Register(root)
	root = commands.NewRandomCmd(flags, app).Register(root)
	root = commands.NewFilterCmd(flags, app).Register(root)
	root = commands.NewConfigValidateCmd(flags, app).Register(root)

	exitCode := 0
	runErr := root.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
