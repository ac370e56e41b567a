package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/events"
	"github.com/spec-kit/tickets/internal/printer"
	"github.com/spec-kit/tickets/internal/sheet"
)

// TestPageText is the line printed by PrintTest.
const TestPageText = "HELLO FROM TICKETS"

// PrintService renders tickets and sheets and sends them to the printer.
type PrintService struct {
	tickets    *TicketService
	formatter  sheet.Formatter
	sink       printer.Sink
	dispatcher events.Dispatcher
	logger     *zap.Logger
	debug      bool
}

// PrintDependencies bundles collaborators for the print service.
type PrintDependencies struct {
	Tickets    *TicketService
	Formatter  sheet.Formatter
	Sink       printer.Sink
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Debug logs every printed line.
	Debug bool
}

// NewPrintService constructs the service.
func NewPrintService(deps PrintDependencies) *PrintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrintService{
		tickets:    deps.Tickets,
		formatter:  deps.Formatter,
		sink:       deps.Sink,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		debug:      deps.Debug,
	}
}

// Formatter exposes the formatter used for printed output.
func (p *PrintService) Formatter() sheet.Formatter {
	return p.formatter
}

// PrintTest prints a one-line test page.
func (p *PrintService) PrintTest(ctx context.Context) error {
	p.emit(ctx, events.SheetTest, "", []string{TestPageText})
	return nil
}

// PrintTicket prints a single ticket. Unknown ids return NotFound and print
// nothing.
func (p *PrintService) PrintTicket(ctx context.Context, id string) error {
	ticket, err := p.tickets.Get(ctx, id)
	if err != nil {
		return err
	}
	p.emit(ctx, events.SheetTicket, ticket.ID, p.formatter.Ticket(*ticket))
	return nil
}

// WeekSheet renders the week sheet for the week containing now.
func (p *PrintService) WeekSheet(ctx context.Context, now time.Time) ([]string, error) {
	week, err := p.tickets.ListWeek(ctx, now)
	if err != nil {
		return nil, err
	}
	return p.formatter.Week(week.Start, week.End, week.Dated), nil
}

// PrintWeek prints the week sheet.
func (p *PrintService) PrintWeek(ctx context.Context, now time.Time) error {
	lines, err := p.WeekSheet(ctx, now)
	if err != nil {
		return err
	}
	p.emit(ctx, events.SheetWeek, "", lines)
	return nil
}

// TodaySheet renders the daily worksheet.
func (p *PrintService) TodaySheet(ctx context.Context, now time.Time) ([]string, error) {
	tickets, err := p.tickets.ListToday(ctx, now)
	if err != nil {
		return nil, err
	}
	return p.formatter.Today(now, tickets), nil
}

// PrintToday prints the daily worksheet.
func (p *PrintService) PrintToday(ctx context.Context, now time.Time) error {
	lines, err := p.TodaySheet(ctx, now)
	if err != nil {
		return err
	}
	p.emit(ctx, events.SheetToday, "", lines)
	return nil
}

// PrintFree prints arbitrary text. Blank text is a validation error.
func (p *PrintService) PrintFree(ctx context.Context, text string) error {
	lines, err := p.formatter.FreeText(text)
	if err != nil {
		return err
	}
	p.emit(ctx, events.SheetFree, "", lines)
	return nil
}

// emit writes one job to the sink. Sink errors are logged, never returned.
func (p *PrintService) emit(ctx context.Context, kind events.SheetKind, ticketID string, lines []string) {
	var failure error
	for _, line := range lines {
		if p.debug {
			p.logger.Debug("print line", zap.String("sink", p.sink.Name()), zap.String("line", line))
		}
		if err := p.sink.WriteLine(line); err != nil && failure == nil {
			failure = err
		}
	}
	if err := p.sink.Cut(); err != nil && failure == nil {
		failure = err
	}
	if err := p.sink.Flush(); err != nil && failure == nil {
		failure = err
	}

	payload := events.SheetPrintedPayload{Kind: kind, Lines: len(lines), Sink: p.sink.Name()}
	if failure != nil {
		payload.Err = failure.Error()
		p.logger.Error("print failed",
			zap.String("kind", string(kind)),
			zap.String("sink", p.sink.Name()),
			zap.Error(failure))
	}
	publish(ctx, p.dispatcher, p.logger, p.tickets.Now(), events.Event{
		Type:     events.EventSheetPrinted,
		TicketID: ticketID,
		Payload:  payload,
	})
}
