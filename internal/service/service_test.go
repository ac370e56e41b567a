package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/domain"
	"github.com/spec-kit/tickets/internal/events"
	"github.com/spec-kit/tickets/internal/persistence"
	"github.com/spec-kit/tickets/internal/repository"
	"github.com/spec-kit/tickets/internal/sheet"
	"github.com/spec-kit/tickets/pkg/util/errorutil"
)

// Wednesday.
var fixedNow = time.Date(2026, 2, 4, 10, 30, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type memorySink struct {
	lines   []string
	cuts    int
	flushes int
	err     error
}

func (m *memorySink) WriteLine(line string) error {
	m.lines = append(m.lines, line)
	return m.err
}
func (m *memorySink) Cut() error   { m.cuts++; return m.err }
func (m *memorySink) Flush() error { m.flushes++; return nil }
func (m *memorySink) Name() string { return "memory" }

type fixture struct {
	tickets  *TicketService
	printing *PrintService
	sink     *memorySink
	events   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := persistence.OpenSQLite(ctx, filepath.Join(t.TempDir(), "tickets.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.MigrateSQLite(ctx, db.DB, zap.NewNop()))

	dispatcher := events.NewInMemoryDispatcher()
	rec := &recorder{}
	for _, et := range []events.EventType{events.EventTicketCreated, events.EventTicketClosed, events.EventSheetPrinted} {
		dispatcher.Subscribe(et, rec.handle)
	}

	tickets := NewTicketService(TicketDependencies{
		TicketRepo:  repository.NewSQLiteTicketRepository(db.DB, time.UTC),
		Dispatcher:  dispatcher,
		DefaultTags: "work,personal",
		Now:         func() time.Time { return fixedNow },
		Location:    time.UTC,
	})
	sink := &memorySink{}
	printing := NewPrintService(PrintDependencies{
		Tickets:    tickets,
		Formatter:  sheet.New(32),
		Sink:       sink,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return &fixture{tickets: tickets, printing: printing, sink: sink, events: rec}
}

func intPtr(v int) *int { return &v }

func TestTicketService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, TicketCreateInput{
		Title:    "  Pay rent  ",
		Priority: intPtr(3),
		Due:      "2026-02-06",
		Tags:     "Home, Bills ,home",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, "Pay rent", ticket.Title)
	assert.Equal(t, 3, ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.NotNil(t, ticket.Tags)
	assert.Equal(t, "home,bills", *ticket.Tags)
	assert.Equal(t, "2026-02-06", ticket.DueDate())
	assert.True(t, ticket.CreatedAt.Equal(fixedNow))
	assert.Nil(t, ticket.ClosedAt)

	stored, err := f.tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Title, stored.Title)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.events.types())
}

func TestTicketService_CreateDefaults(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.tickets.Create(context.Background(), TicketCreateInput{Title: "Call mom"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPriority, ticket.Priority)
	require.NotNil(t, ticket.Tags)
	assert.Equal(t, "work,personal", *ticket.Tags)
	assert.Nil(t, ticket.DueAt)
	assert.Nil(t, ticket.Notes)
}

func TestTicketService_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input TicketCreateInput
	}{
		{"blank title", TicketCreateInput{Title: "   "}},
		{"priority too high", TicketCreateInput{Title: "x", Priority: intPtr(7)}},
		{"priority zero", TicketCreateInput{Title: "x", Priority: intPtr(0)}},
		{"bad due", TicketCreateInput{Title: "x", Due: "next friday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.tickets.Create(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errorutil.IsValidation(err))

			open, err := f.tickets.ListOpen(context.Background())
			require.NoError(t, err)
			assert.Empty(t, open, "nothing is written on validation failure")
			assert.Empty(t, f.events.types())
		})
	}
}

func TestTicketService_Close(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.tickets.Create(ctx, TicketCreateInput{Title: "X"})
	require.NoError(t, err)

	closed, err := f.tickets.Close(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	again, err := f.tickets.Close(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, again.ClosedAt.Equal(*closed.ClosedAt))
	assert.Equal(t, []events.EventType{events.EventTicketCreated, events.EventTicketClosed}, f.events.types())

	_, err = f.tickets.Close(ctx, "nope")
	assert.True(t, errorutil.IsNotFound(err))
}

func TestTicketService_Views(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mk := func(title string, priority int, due string) {
		_, err := f.tickets.Create(ctx, TicketCreateInput{Title: title, Priority: intPtr(priority), Due: due})
		require.NoError(t, err)
	}
	mk("overdue", 2, "2026-01-30")
	mk("today", 4, "2026-02-04")
	mk("friday", 5, "2026-02-06")
	mk("next week", 3, "2026-02-10")
	mk("undated", 1, "")
	mk("march", 1, "2026-03-01")

	today, err := f.tickets.ListToday(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"today", "overdue", "undated"}, titlesOf(today))

	week, err := f.tickets.ListWeek(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-02", week.Start.Format(domain.DateLayout))
	assert.Equal(t, "2026-02-08", week.End.Format(domain.DateLayout))
	assert.Equal(t, []string{"today", "friday"}, titlesOf(week.Dated))
	assert.Equal(t, []string{"undated"}, titlesOf(week.Undated))

	month, err := f.tickets.ListMonth(ctx, fixedNow)
	require.NoError(t, err)
	assert.Len(t, month.Days, 28)
	assert.Equal(t, []string{"today"}, titlesOf(month.ByDay["2026-02-04"]))
	assert.Equal(t, []string{"next week"}, titlesOf(month.ByDay["2026-02-10"]))
	assert.NotContains(t, month.ByDay, "2026-03-01")
	assert.NotContains(t, month.ByDay, "2026-01-30")
}

func TestPrintService_PrintTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.tickets.Create(ctx, TicketCreateInput{Title: "Call mom", Tags: "home"})
	require.NoError(t, err)

	require.NoError(t, f.printing.PrintTicket(ctx, ticket.ID))
	assert.Equal(t, sheet.New(32).Ticket(*ticket), f.sink.lines)
	assert.Equal(t, 1, f.sink.cuts)
	assert.Equal(t, 1, f.sink.flushes)
	assert.Contains(t, f.events.types(), events.EventSheetPrinted)
}

func TestPrintService_PrintTicketNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.printing.PrintTicket(context.Background(), "missing")
	assert.True(t, errorutil.IsNotFound(err))
	assert.Empty(t, f.sink.lines)
}

func TestPrintService_PrintWeekEmpty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.printing.PrintWeek(context.Background(), fixedNow))
	assert.Contains(t, f.sink.lines, sheet.Center("No tasks this week", sheet.DefaultSheetWidth))
	assert.Contains(t, f.sink.lines, sheet.Center("WEEK Feb 02 - Feb 08", sheet.DefaultSheetWidth))
}

func TestPrintService_PrintFree(t *testing.T) {
	f := newFixture(t)
	err := f.printing.PrintFree(context.Background(), "   ")
	assert.True(t, errorutil.IsValidation(err))
	assert.Empty(t, f.sink.lines)

	require.NoError(t, f.printing.PrintFree(context.Background(), "buy milk"))
	assert.Len(t, f.sink.lines, 3)
}

func TestPrintService_SinkFailureIsNotReturned(t *testing.T) {
	f := newFixture(t)
	f.sink.err = errors.New("paper jam")

	require.NoError(t, f.printing.PrintTest(context.Background()))
	require.NoError(t, f.printing.PrintToday(context.Background(), fixedNow))

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	require.NotEmpty(t, f.events.events)
	payload, ok := f.events.events[0].Payload.(events.SheetPrintedPayload)
	require.True(t, ok)
	assert.Equal(t, "paper jam", payload.Err)
}

func titlesOf(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.Title)
	}
	return out
}
