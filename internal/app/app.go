// Package app encapsulates the application's dependencies, configuration,
// and lifecycle: logger construction, catalog loading, and the
// per-subcommand orchestration of the pipeline.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vk/archplan/internal/catalog"
	"github.com/vk/archplan/internal/ctxlog"
	"github.com/vk/archplan/internal/engine"
	"github.com/vk/archplan/internal/signal"
)

// App wires the loaded catalog and the pipeline engine to the command
// surface. Documents go to outW; logs go to the logger's writer so stdout
// stays clean for machine consumption.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	catalog *catalog.Catalog
	engine  *engine.Engine
}

// NewApp is the constructor for the main application. The catalog is
// read-only configuration loaded once at startup; a failure to load it is
// a fatal configuration error, so this panics and relies on the caller to
// recover with a clean exit message.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW).With("run_id", uuid.NewString())
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cat, err := catalog.Load(ctx, cfg.CatalogPath)
	if err != nil {
		panic(fmt.Errorf("failed to load catalog: %w", err))
	}

	eng, err := engine.New(cat)
	if err != nil {
		panic(fmt.Errorf("failed to initialize engine: %w", err))
	}

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		catalog: cat,
		engine:  eng,
	}
}

// Catalog returns the application's catalog. This is primarily for testing.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// loadSignals reads and validates the analyzer document named in the
// configuration.
func (a *App) loadSignals(ctx context.Context) (*signal.Set, error) {
	if a.config.SignalsPath == "" {
		return nil, fmt.Errorf("no signal document provided; pass --signals")
	}
	doc, err := signal.LoadDocument(ctx, a.config.SignalsPath)
	if err != nil {
		return nil, err
	}
	return doc.Set(), nil
}
