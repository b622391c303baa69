package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"seppe/internal/backend"
	"seppe/internal/cache"
	"seppe/internal/cli"
	"seppe/internal/dashboard"
	apphttp "seppe/internal/http"
	"seppe/internal/importer"
	"seppe/internal/log"
	"seppe/internal/metrics"
	"seppe/internal/middleware/ratelimit"
	"seppe/internal/services"
	"seppe/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seppe: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg)

	catalog, err := cli.LoadCatalog(cfg)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	infra, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := infra.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	m := metrics.New()
	st := store.New()

	views := cache.NewLRUCache[dashboard.View](cfg.ViewCacheSize, cfg.ViewCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(views)
	caches.StartCleanup(cfg.CacheCleanupInterval)

	dash := services.NewDashboardService(st, views, m)
	imports := services.NewImportService(services.ImportConfig{
		Normalizer: importer.NewNormalizer(catalog, logger),
		Store:      st,
		History:    infra.History,
		Publisher:  infra.Publisher,
		Sheets:     infra.Sheets,
		Metrics:    m,
		Logger:     logger,
		OnReplace:  dash.Invalidate,
	})

	seed(ctx, logger, imports, cfg.SeedFile)

	var rateLimit *ratelimit.Config
	if cfg.RateLimitEnabled {
		rateLimit = &ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           cfg.Addr(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit:      rateLimit,
	}, apphttp.Deps{
		Imports:   imports,
		Dashboard: dash,
		History:   infra.History,
		Catalog:   catalog,
		Metrics:   m,
		Logger:    logger,
		Caches:    caches,
		Ready:     infra.Ready,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting seppe server",
			"addr", cfg.Addr(),
			"history_backend", cfg.HistoryBackend,
			"amqp_enabled", infra.Publisher != nil,
			"sheets_enabled", infra.Sheets != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Server stopped")
	return err
}

// seed imports the configured file at start-up. A failed seed leaves the
// dataset empty and is not fatal.
func seed(ctx context.Context, logger *log.Logger, imports *services.ImportService, path string) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read seed file", log.FieldSource, path, log.FieldError, err.Error())
		return
	}
	out, err := imports.ImportFile(ctx, filepath.Base(path), data)
	if err != nil {
		logger.Warn("Seed import rejected", log.FieldSource, path, log.FieldError, err.Error())
		return
	}
	logger.Info("Seed dataset loaded",
		log.FieldSource, path,
		log.FieldRecords, out.Records,
		log.FieldSkipped, out.Skipped)
}

