// Package cli implements the checkround command line: it stands in for
// the inspection app's screens and wires every service explicitly.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"checkround/pkg/kv"
	"checkround/pkg/render"
	"checkround/pkg/store"
	"checkround/pkg/telemetry"
	"checkround/services/auth"
	"checkround/services/checklist"
	"checkround/services/cli/internal/config"
)

const serviceName = "checkround"

// App holds the services one command invocation works with.
type App struct {
	Config  config.Config
	Logger  zerolog.Logger
	Backend kv.Backend
	Store   *store.Store
	Repo    *checklist.Repository
	Auth    *auth.Service
	Render  *render.Engine
	Metrics *checklist.Metrics

	shutdownTracing func(context.Context) error
}

// Open builds an App from cfg. Logs go to logOut.
func Open(ctx context.Context, cfg config.Config, logOut io.Writer) (*App, error) {
	logger, err := telemetry.NewLogger(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	backend, err := kv.Open(ctx, kv.Options{Kind: cfg.BackendKind(), Dir: cfg.DataDir})
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open %s store in %s: %w", cfg.BackendKind(), cfg.DataDir, err)
	}

	app := &App{
		Config:          cfg,
		Logger:          logger,
		Backend:         backend,
		Metrics:         checklist.NewMetrics(),
		shutdownTracing: shutdown,
	}
	if err := app.wire(logger, loc); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	logger.Debug().
		Str("backend", string(cfg.BackendKind())).
		Str("data_dir", cfg.DataDir).
		Msg("store opened")
	return app, nil
}

func (a *App) wire(logger zerolog.Logger, loc *time.Location) error {
	st, err := store.New(a.Backend,
		store.WithLogger(logger.With().Str("component", "store").Logger()),
		store.WithErrorHook(a.Metrics.StoreError),
	)
	if err != nil {
		return err
	}
	a.Store = st

	a.Repo, err = checklist.New(st, checklist.Options{
		Location:         loc,
		StrictReferences: a.Config.StrictReferences,
		Metrics:          a.Metrics,
		Logger:           logger.With().Str("component", "checklist").Logger(),
	})
	if err != nil {
		return err
	}

	verifier, err := auth.NewBcryptVerifier(a.Config.BcryptCost)
	if err != nil {
		return err
	}
	a.Auth, err = auth.NewService(st, verifier, logger.With().Str("component", "auth").Logger())
	if err != nil {
		return err
	}

	a.Render, err = render.New(loc)
	return err
}

// Close releases the store, then exports metrics and flushes traces.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Backend != nil {
		if err := a.Backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if err := telemetry.WriteMetrics(a.Config.MetricsTextfile, a.Metrics.Gatherer()); err != nil {
		errs = append(errs, err)
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}
