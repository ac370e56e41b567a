// Package app wires the ticket store, services and printer shared by the
// web server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/config"
	"github.com/spec-kit/tickets/internal/events"
	"github.com/spec-kit/tickets/internal/observability"
	"github.com/spec-kit/tickets/internal/persistence"
	"github.com/spec-kit/tickets/internal/printer"
	"github.com/spec-kit/tickets/internal/repository"
	"github.com/spec-kit/tickets/internal/service"
	"github.com/spec-kit/tickets/internal/sheet"
	"github.com/spec-kit/tickets/internal/worker"
)

// Pinger is implemented by every backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options adjusts wiring per binary.
type Options struct {
	// Console receives console sink output; nil selects stdout.
	Console io.Writer
	// ForceConsole skips the printer device entirely.
	ForceConsole bool
	// Now overrides the service clock.
	Now func() time.Time
}

// App is the set of collaborators the binaries consume.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Dispatcher events.Dispatcher
	Tickets    *service.TicketService
	Printing   *service.PrintService
	Activity   *service.ActivityService

	// Store is the open ticket database, keyed by driver name for
	// readiness checks.
	Store     Pinger
	StoreName string

	closers []func() error
}

// New opens the configured store, applies migrations and builds the
// services. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	a := &App{
		Config:     cfg,
		Logger:     logger,
		Metrics:    observability.NewMetrics(),
		Dispatcher: events.NewInMemoryDispatcher(),
	}

	repo, err := a.openStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repo,
		Dispatcher:  a.Dispatcher,
		DefaultTags: cfg.Tickets.DefaultTags,
		Now:         opts.Now,
		Location:    time.Local,
		Logger:      logger,
	})

	a.Printing = service.NewPrintService(service.PrintDependencies{
		Tickets:    a.Tickets,
		Formatter:  sheet.New(cfg.Printer.Columns),
		Sink:       a.sink(opts),
		Dispatcher: a.Dispatcher,
		Logger:     logger,
		Debug:      cfg.Printer.Debug,
	})

	a.Activity = service.NewActivityService(a.Dispatcher, logger, a.Metrics)
	worker.StartActivityWorker(a.Activity)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.TicketRepository, error) {
	switch a.Config.Database.Driver {
	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, a.Config.Database, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if err := persistence.MigratePostgres(ctx, pg.PoolHandle(), a.Logger); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		a.Store, a.StoreName = pg, config.DriverPostgres
		return repository.NewPostgresTicketRepository(pg.PoolHandle(), time.Local), nil
	default:
		db, err := persistence.OpenSQLite(ctx, a.Config.Database.Path, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := persistence.MigrateSQLite(ctx, db.DB, a.Logger); err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		a.Store, a.StoreName = db, config.DriverSQLite
		return repository.NewSQLiteTicketRepository(db.DB, time.Local), nil
	}
}

func (a *App) sink(opts Options) printer.Sink {
	console := printer.NewConsoleSink(opts.Console, a.Config.Printer.Columns)
	if opts.ForceConsole {
		return console
	}
	sink := printer.New(a.Config.Printer, a.Logger, console)
	if fb, ok := sink.(*printer.FallbackSink); ok {
		fb.OnFailure = func(string, error) { a.Metrics.RecordPrintFailure() }
	}
	return sink
}

// Close releases the store in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
