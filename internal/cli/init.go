// Package cli provides common process initialization for cmd/seppe.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"seppe/internal/config"
	"seppe/internal/core"
	"seppe/internal/log"
)

// LoadConfig loads the .env file and environment, then validates the result.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from configuration and sets
// it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadCatalog returns the secretariat catalog from the configured YAML
// file, or the built-in list with the configured fallback secretariat.
func LoadCatalog(cfg *config.Config) (*core.Catalog, error) {
	if cfg.CatalogFile != "" {
		catalog, err := core.LoadCatalog(cfg.CatalogFile, cfg.DefaultSecretariat)
		if err != nil {
			return nil, fmt.Errorf("load secretariat catalog: %w", err)
		}
		return catalog, nil
	}
	catalog, err := core.NewCatalog(core.DefaultCatalog().Labels(), cfg.DefaultSecretariat)
	if err != nil {
		return nil, fmt.Errorf("build secretariat catalog: %w", err)
	}
	return catalog, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
