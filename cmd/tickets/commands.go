package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/app"
	"github.com/spec-kit/tickets/internal/config"
	"github.com/spec-kit/tickets/internal/domain"
	"github.com/spec-kit/tickets/internal/observability"
	"github.com/spec-kit/tickets/internal/service"
	"github.com/spec-kit/tickets/pkg/util/errorutil"
)

// runner carries global flags and opens the application per command so
// preview commands can skip the printer device.
type runner struct {
	logLevel string
	dbPath   string

	addNotes    string
	addPriority int64
	addDue      string
	addTags     string
	preview     bool
}

func (r *runner) open(ctx context.Context, c *cli.Command, preview bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if r.logLevel != "" {
		cfg.Logger.Level = r.logLevel
	}
	if r.dbPath != "" {
		cfg.Database.Path = r.dbPath
	}

	logger, err := observability.NewLogger(cfg.Logger, "stderr")
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	return app.New(ctx, cfg, logger, app.Options{
		Console:      c.Root().Writer,
		ForceConsole: preview,
	})
}

// with opens the application, runs fn and closes it again.
func (r *runner) with(preview bool, fn func(ctx context.Context, c *cli.Command, a *app.App) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		a, err := r.open(ctx, c, preview || r.preview)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				a.Logger.Warn("close store", zap.Error(err))
			}
			_ = a.Logger.Sync()
		}()
		return fn(ctx, c, a)
	}
}

func newRootCommand(r *runner) *cli.Command {
	previewFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:        "preview",
			Usage:       "write the sheet to the console instead of the printer",
			Destination: &r.preview,
		}
	}

	return &cli.Command{
		Name:      "tickets",
		Usage:     "Tiny ticket system with printable sheets",
		UsageText: "tickets [global options] command [command options]",
		Version:   version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("LOG_LEVEL"),
				Value:       "warn",
				Destination: &r.logLevel,
			},
			&cli.StringFlag{
				Name:        "db",
				Usage:       "path to the SQLite database (overrides TICKETS_DB)",
				Destination: &r.dbPath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a ticket",
				UsageText: "tickets add <title> [--notes] [--priority] [--due] [--tags]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "notes", Usage: "free-form notes", Destination: &r.addNotes},
					&cli.IntFlag{
						Name:        "priority",
						Aliases:     []string{"p"},
						Usage:       "priority 1 (low) to 5 (high)",
						Value:       domain.DefaultPriority,
						Destination: &r.addPriority,
					},
					&cli.StringFlag{Name: "due", Usage: "YYYY-MM-DD or YYYY-MM-DD HH:MM", Destination: &r.addDue},
					&cli.StringFlag{Name: "tags", Usage: "comma separated tags", Destination: &r.addTags},
				},
				Action: r.with(true, r.runAdd),
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List open tickets",
				Action:  r.with(true, r.runList),
			},
			{
				Name:   "today",
				Usage:  "List overdue, due today and undated tickets",
				Action: r.with(true, r.runToday),
			},
			{
				Name:   "history",
				Usage:  "List closed tickets, most recent first",
				Action: r.with(true, r.runHistory),
			},
			{
				Name:      "done",
				Usage:     "Mark a ticket done",
				UsageText: "tickets done <id>",
				Action:    r.with(true, r.runDone),
			},
			{
				Name:   "print-today",
				Usage:  "Print the daily worksheet",
				Flags:  []cli.Flag{previewFlag()},
				Action: r.with(false, r.runPrintToday),
			},
			{
				Name:   "print-week",
				Usage:  "Print the weekly sheet",
				Flags:  []cli.Flag{previewFlag()},
				Action: r.with(false, r.runPrintWeek),
			},
			{
				Name:      "print-ticket",
				Usage:     "Print a single ticket",
				UsageText: "tickets print-ticket <id>",
				Flags:     []cli.Flag{previewFlag()},
				Action:    r.with(false, r.runPrintTicket),
			},
			{
				Name:      "print-free",
				Usage:     "Print arbitrary text",
				UsageText: "tickets print-free <text...>",
				Flags:     []cli.Flag{previewFlag()},
				Action:    r.with(false, r.runPrintFree),
			},
			{
				Name:   "seed",
				Usage:  "Add demo tickets around today",
				Action: r.with(true, r.runSeed),
			},
		},
	}
}

func (r *runner) runAdd(ctx context.Context, c *cli.Command, a *app.App) error {
	title := strings.Join(c.Args().Slice(), " ")
	priority := int(r.addPriority)
	ticket, err := a.Tickets.Create(ctx, service.TicketCreateInput{
		Title:    title,
		Notes:    r.addNotes,
		Priority: &priority,
		Due:      r.addDue,
		Tags:     r.addTags,
	})
	if err != nil {
		return userError(err)
	}
	_, err = fmt.Fprintf(c.Root().Writer, "Added %s.\n", ticket.ShortID())
	return err
}

func (r *runner) runList(ctx context.Context, c *cli.Command, a *app.App) error {
	tickets, err := a.Tickets.ListOpen(ctx)
	if err != nil {
		return err
	}
	return writeTickets(c.Root().Writer, tickets, "No open tickets.")
}

func (r *runner) runToday(ctx context.Context, c *cli.Command, a *app.App) error {
	tickets, err := a.Tickets.ListToday(ctx, a.Tickets.Now())
	if err != nil {
		return err
	}
	return writeTickets(c.Root().Writer, tickets, "No open tickets for today.")
}

func (r *runner) runHistory(ctx context.Context, c *cli.Command, a *app.App) error {
	tickets, err := a.Tickets.ListClosed(ctx)
	if err != nil {
		return err
	}
	out := c.Root().Writer
	if len(tickets) == 0 {
		_, err := fmt.Fprintln(out, "No closed tickets.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, t := range tickets {
		closed := "-"
		if t.ClosedAt != nil {
			closed = t.ClosedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\tclosed: %s\t%s\n", t.ID, closed, t.Title)
	}
	return w.Flush()
}

func (r *runner) runDone(ctx context.Context, c *cli.Command, a *app.App) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("ticket id is required")
	}
	before, err := a.Tickets.Get(ctx, id)
	if err != nil {
		return userError(err)
	}
	if !before.IsOpen() {
		_, err := fmt.Fprintln(c.Root().Writer, "No change (already done).")
		return err
	}
	if _, err := a.Tickets.Close(ctx, id); err != nil {
		return userError(err)
	}
	_, err = fmt.Fprintln(c.Root().Writer, "Done.")
	return err
}

func (r *runner) runPrintToday(ctx context.Context, _ *cli.Command, a *app.App) error {
	return a.Printing.PrintToday(ctx, a.Tickets.Now())
}

func (r *runner) runPrintWeek(ctx context.Context, _ *cli.Command, a *app.App) error {
	return a.Printing.PrintWeek(ctx, a.Tickets.Now())
}

func (r *runner) runPrintTicket(ctx context.Context, c *cli.Command, a *app.App) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("ticket id is required")
	}
	return userError(a.Printing.PrintTicket(ctx, id))
}

func (r *runner) runPrintFree(ctx context.Context, c *cli.Command, a *app.App) error {
	return userError(a.Printing.PrintFree(ctx, strings.Join(c.Args().Slice(), " ")))
}

func writeTickets(out io.Writer, tickets []domain.Ticket, empty string) error {
	if len(tickets) == 0 {
		_, err := fmt.Fprintln(out, empty)
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, t := range tickets {
		due := "-"
		if t.DueAt != nil {
			due = t.DueAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t[P%d]\tdue: %s\t%s\n", t.ID, t.Priority, due, t.Title)
	}
	return w.Flush()
}

// userError strips the domain error wrapper down to its message.
func userError(err error) error {
	if err == nil {
		return nil
	}
	var de *errorutil.DomainError
	if errors.As(err, &de) && de.Err == nil {
		return errors.New(de.Message)
	}
	return err
}
