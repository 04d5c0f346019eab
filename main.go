package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dickeyy/bundle-dashboard/config"
	"github.com/dickeyy/bundle-dashboard/dashboard"
	"github.com/dickeyy/bundle-dashboard/db"
	"github.com/dickeyy/bundle-dashboard/importer"
	"github.com/dickeyy/bundle-dashboard/metrics"
	"github.com/dickeyy/bundle-dashboard/server"
	"github.com/dickeyy/bundle-dashboard/services"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal().Err(err).Msg("failed to load .env file")
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("bundledash failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bundledash",
		Usage: "bundle size dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{"BUNDLEDASH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "source",
				Usage:   "dataset source: http, file, github, github-graphql or postgres",
				EnvVars: []string{"BUNDLEDASH_SOURCE"},
			},
			&cli.StringFlag{
				Name:    "url",
				Usage:   "dashboard root URL the dataset path is resolved against (http source)",
				EnvVars: []string{"BUNDLEDASH_URL"},
			},
			&cli.StringFlag{
				Name:    "dir",
				Usage:   "directory holding data/bundle-sizes.json (file source)",
				EnvVars: []string{"BUNDLEDASH_DIR"},
			},
			&cli.StringFlag{
				Name:    "github-token",
				Usage:   "GitHub token for the github sources",
				EnvVars: []string{"GITHUB_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "Postgres connection string",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "timezone",
				Usage:   "IANA zone dates are shown in",
				EnvVars: []string{"BUNDLEDASH_TIMEZONE"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			renderCommand(),
			importCommand(),
		},
		DefaultCommand: "serve",
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the dashboard over HTTP and reload it on a schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "HTTP listen address",
				EnvVars: []string{"BUNDLEDASH_LISTEN"},
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "cron spec of the reload task",
				EnvVars: []string{"BUNDLEDASH_SCHEDULE"},
			},
			&cli.BoolFlag{
				Name:    "watch",
				Usage:   "reload when the file source changes on disk",
				EnvVars: []string{"BUNDLEDASH_WATCH"},
			},
		},
		Action: runServe,
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:   "render",
		Usage:  "load the dataset once and print the dashboard as text",
		Action: runRender,
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "copy the published dataset into Postgres",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "concurrency",
				Value: 4,
				Usage: "number of insert workers",
			},
		},
		Action: runImport,
	}
}

// loadConfig reads the config file and applies flag and environment
// overrides on top of it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	overrides := map[string]*string{
		"log-level":    &cfg.LogLevel,
		"source":       &cfg.Source.Kind,
		"url":          &cfg.Source.URL,
		"dir":          &cfg.Source.Dir,
		"github-token": &cfg.Source.GitHub.Token,
		"dsn":          &cfg.Source.Postgres.DSN,
		"timezone":     &cfg.Timezone,
		"listen":       &cfg.Listen,
		"schedule":     &cfg.ReloadSchedule,
	}
	for name, dst := range overrides {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}

	if cfg.LogLevel != "" {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			log.Warn().Str("log_level", cfg.LogLevel).Msg("invalid log level, keeping info")
		} else {
			zerolog.SetGlobalLevel(level)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLoader builds the configured dataset source. The returned cleanup must
// be called once the loader is no longer used.
func newLoader(ctx context.Context, cfg *config.Config) (dashboard.Loader, func(), error) {
	noop := func() {}

	httpClient, err := services.NewHTTPClient(cfg.Proxy, cfg.Source.FetchTimeout)
	if err != nil {
		return nil, noop, err
	}

	gh := services.GitHubSource{
		Owner: cfg.Source.GitHub.Owner,
		Repo:  cfg.Source.GitHub.Repo,
		Ref:   cfg.Source.GitHub.Ref,
		Path:  cfg.Source.Path,
	}

	switch cfg.Source.Kind {
	case config.SourceHTTP:
		return &services.HTTPSource{BaseURL: cfg.Source.URL, Path: cfg.Source.Path, Client: httpClient}, noop, nil
	case config.SourceFile:
		return &services.FileSource{Dir: cfg.Source.Dir, Path: cfg.Source.Path}, noop, nil
	case config.SourceGitHub:
		services.InitGitHub(ctx, cfg.Source.GitHub.Token, httpClient)
		return &gh, noop, nil
	case config.SourceGitHubGraphQL:
		services.InitGitHub(ctx, cfg.Source.GitHub.Token, httpClient)
		return &services.GraphQLSource{GitHubSource: gh}, noop, nil
	case config.SourcePostgres:
		if err := db.Init(ctx, cfg.Source.Postgres.DSN); err != nil {
			return nil, noop, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		return db.Source{}, db.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	loc, _ := cfg.Location()
	if c.IsSet("watch") {
		cfg.Source.Watch = c.Bool("watch")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, cleanup, err := newLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	surface := dashboard.NewHTMLSurface()
	ctrl := dashboard.New(loader, surface,
		dashboard.WithCommitOrg(cfg.CommitOrg),
		dashboard.WithLocation(loc),
		dashboard.WithSchedule(cfg.ReloadSchedule),
		dashboard.WithMetrics(metrics.New(reg)),
	)
	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	defer ctrl.Stop()

	if fileSrc, ok := loader.(*services.FileSource); ok && cfg.Source.Watch {
		go func() {
			err := fileSrc.Watch(ctx, func() {
				if err := ctrl.Reload(ctx); err != nil {
					log.Warn().Err(err).Msg("reload after file change failed")
				}
			})
			if err != nil {
				log.Error().Err(err).Msg("file watcher stopped")
			}
		}()
	}

	httpServer := server.NewHTTPServer(cfg.Listen, server.NewRouter(ctrl, surface, server.Options{
		Refresh:  cfg.PageRefresh,
		Gatherer: reg,
	}))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}()

	log.Info().Str("addr", httpServer.Addr).Str("source", cfg.Source.Kind).Msg("HTTP server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func runRender(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	loc, _ := cfg.Location()

	loader, cleanup, err := newLoader(c.Context, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	surface := dashboard.NewTextSurface()
	ctrl := dashboard.New(loader, surface,
		dashboard.WithCommitOrg(cfg.CommitOrg),
		dashboard.WithLocation(loc),
	)
	loadErr := ctrl.LoadData(c.Context)
	if err := surface.Render(os.Stdout); err != nil {
		return err
	}
	if loadErr != nil {
		return cli.Exit("", 1)
	}
	return nil
}

func runImport(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Source.Kind == config.SourcePostgres {
		return errors.New("import needs a non-postgres source to read from")
	}
	if cfg.Source.Postgres.DSN == "" {
		return errors.New("--dsn or DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, cleanup, err := newLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := db.Init(ctx, cfg.Source.Postgres.DSN); err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	defer db.Close()

	_, err = importer.Run(ctx, loader, db.InsertMeasurement, c.Int("concurrency"))
	return err
}
