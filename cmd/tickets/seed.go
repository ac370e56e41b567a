package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/spec-kit/tickets/internal/app"
	"github.com/spec-kit/tickets/internal/dates"
	"github.com/spec-kit/tickets/internal/domain"
	"github.com/spec-kit/tickets/internal/service"
)

type seedTicket struct {
	title    string
	days     int
	priority int
	tags     string
}

// Overdue, due today, this week and later this month.
var seedTickets = []seedTicket{
	{"Submit expense report", -5, 1, "work"},
	{"Book dentist appointment", -3, 2, "personal"},
	{"Renew SSL certificate", -2, 1, "work"},

	{"Finish quarterly review", 0, 1, "work"},
	{"Wash the sheets", 0, 3, "personal"},
	{"Reply to Sam's email", 0, 2, "work"},

	{"Prepare sprint demo", 1, 1, "work"},
	{"Buy groceries", 2, 3, "personal"},
	{"Update project roadmap", 3, 2, "work"},
	{"Gym session", 4, 3, "personal"},

	{"Plan holiday itinerary", 7, 3, "personal"},
	{"Refactor auth middleware", 10, 1, "work"},
	{"Car service booking", 12, 2, "personal"},
	{"Team 1:1 prep notes", 14, 2, "work"},
}

func (r *runner) runSeed(ctx context.Context, c *cli.Command, a *app.App) error {
	today := dates.StartOfDay(a.Tickets.Now())
	for _, s := range seedTickets {
		priority := s.priority
		_, err := a.Tickets.Create(ctx, service.TicketCreateInput{
			Title:    s.title,
			Priority: &priority,
			Due:      today.AddDate(0, 0, s.days).Format(domain.DateLayout),
			Tags:     s.tags,
		})
		if err != nil {
			return fmt.Errorf("seed %q: %w", s.title, err)
		}
	}
	_, err := fmt.Fprintf(c.Root().Writer, "Seeded %d tickets.\n", len(seedTickets))
	return err
}
