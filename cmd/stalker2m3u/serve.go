package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/voyagen/stalker2m3u/internal/cache"
	"github.com/voyagen/stalker2m3u/internal/config"
	"github.com/voyagen/stalker2m3u/internal/logging"
	"github.com/voyagen/stalker2m3u/internal/server"
	"github.com/voyagen/stalker2m3u/internal/service"
	"github.com/voyagen/stalker2m3u/internal/store"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		port       string
		migrations string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.ServerPort = port
			}
			return serve(cmd.Context(), cfg, migrations)
		},
	}
	cmd.Flags().StringVar(&port, "port", config.DefaultServerPort, "listen port (overrides config)")
	cmd.Flags().StringVar(&migrations, "migrations", "", "migrations directory (default: ./migrations or next to the binary)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrationsDir string) error {
	logger := logging.WithComponent("main")

	var appStore store.Store
	if cfg.DatabaseURL != "" {
		if err := store.EnsureDatabase(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := store.RunMigrations(cfg.DatabaseURL, "file://"+resolveMigrations(migrationsDir)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer pg.Close()
		appStore = pg
		logger.Info().Msg("postgres store enabled")
	} else {
		appStore = store.NewMemory()
		logger.Warn().Msg("DATABASE_URL not set, conversions are kept in memory")
	}

	var rds *cache.Redis
	if cfg.RedisURL != "" {
		var err error
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		appStore = store.NewCachedStore(appStore, rds)
		logger.Info().Msg("redis connected (cache, device lock and job queue enabled)")
	} else {
		logger.Info().Msg("redis disabled (REDIS_URL not set)")
	}

	opts := []service.Option{service.WithStore(appStore)}
	if rds != nil {
		opts = append(opts, service.WithDeviceLock(rds))
	}
	conv := service.NewConverter(converterOptions(cfg), opts...)

	if rds != nil {
		go service.NewWorker(conv, rds).Run(ctx)
	}

	return server.New(conv, cfg, rds).ListenAndServe(ctx)
}

func converterOptions(cfg *config.Config) service.Options {
	return service.Options{
		Mode:              cfg.Mode,
		Concurrency:       cfg.Concurrency,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxPages:          cfg.MaxPages,
		PersistItems:      cfg.PersistItems,
	}
}

// resolveMigrations finds the migrations directory: the flag, then the
// working directory, then next to the executable.
func resolveMigrations(dir string) string {
	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return dir
	}
	abs, err := filepath.Abs("migrations")
	if err != nil {
		abs = "migrations"
	}
	if _, err := os.Stat(abs); err != nil {
		if exe, e := os.Executable(); e == nil {
			abs = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	return abs
}
