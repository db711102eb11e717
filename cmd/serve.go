package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/storefront-preview/previewkit/internal/config"
	"github.com/storefront-preview/previewkit/internal/preview"
	"github.com/storefront-preview/previewkit/internal/renderer"
	"github.com/storefront-preview/previewkit/internal/runtime"
	"github.com/storefront-preview/previewkit/internal/seed"
	"github.com/storefront-preview/previewkit/internal/server"
	"github.com/storefront-preview/previewkit/internal/store"
	"github.com/storefront-preview/previewkit/internal/themes"
	"github.com/storefront-preview/previewkit/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the preview server",
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "listen host (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	serveCmd.Flags().String("themes", "", "themes root directory (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)

	logger := newLogger(cfg)
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bundle, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Store.Fixtures != "" {
		fixtures, err := seed.LoadFile(cfg.Store.Fixtures)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, bundle, fixtures, logger); err != nil {
			return err
		}
	}

	cache, err := server.NewTemplateCache(cfg.Preview.CacheEntries)
	if err != nil {
		return err
	}
	defer cache.Close()

	provider := themes.NewDirProvider(cfg.Themes.Root)
	engine := renderer.NewEngine(provider, logger).WithCache(cache)

	svc := preview.NewService(preview.Config{
		Composer:         runtime.NewComposer(bundle, logger),
		Engine:           engine,
		Backfiller:       seed.NewBackfiller(bundle, logger),
		MetricsWindow:    cfg.Preview.MetricsWindow,
		BackfillCooldown: time.Duration(cfg.Preview.SeedCooldownSeconds) * time.Second,
		Logger:           logger,
	})

	var hub *server.Hub
	if cfg.Development.LiveReload {
		hub = server.NewHub(logger)
	}

	srv := server.New(server.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ThemesRoot:    cfg.Themes.Root,
		DefaultTenant: cfg.Preview.DefaultTenant,
		Preview:       svc,
		Cache:         cache,
		Hub:           hub,
		Logger:        logger,
	})

	if cfg.Development.Watch {
		w, err := watcher.New(cfg.Themes.Root,
			time.Duration(cfg.Development.DebounceMS)*time.Millisecond, logger)
		if err != nil {
			logger.Warn(ctx, err, "theme watching disabled")
		} else {
			w.OnChange(srv.OnThemeChange)
			if err := w.Start(ctx); err != nil {
				logger.Warn(ctx, err, "theme watching disabled", "root", cfg.Themes.Root)
			}
			defer w.Close()
		}
	}

	return srv.Run(ctx)
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("themes") {
		cfg.Themes.Root, _ = cmd.Flags().GetString("themes")
	}
}

// openStore opens the configured persistence backend.
func openStore(cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "sqlite":
		s, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return store.Store{}, nil, err
		}
		return s.Bundle(), func() { _ = s.Close() }, nil
	case "memory":
		return store.NewMemoryStore().Bundle(), func() {}, nil
	default:
		return store.Store{}, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
