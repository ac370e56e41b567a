package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/dates"
	"github.com/spec-kit/tickets/internal/domain"
	"github.com/spec-kit/tickets/internal/events"
	"github.com/spec-kit/tickets/internal/repository"
	"github.com/spec-kit/tickets/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	dispatcher  events.Dispatcher
	defaultTags string
	now         func() time.Time
	loc         *time.Location
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	Dispatcher  events.Dispatcher
	DefaultTags string
	// Now defaults to time.Now.
	Now func() time.Time
	// Location is used to interpret due input; defaults to time.Local.
	Location *time.Location
	Logger   *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title string
	Notes string
	// Priority nil selects domain.DefaultPriority.
	Priority *int
	Due      string
	Tags     string
}

// WeekView groups the current week's dated tickets and all undated ones.
type WeekView struct {
	Start   time.Time
	End     time.Time
	Dated   []domain.Ticket
	Undated []domain.Ticket
}

// MonthView is the calendar for the current month. ByDay is keyed by
// dates.DateKey.
type MonthView struct {
	Start time.Time
	End   time.Time
	Days  []time.Time
	ByDay map[string][]domain.Ticket
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		dispatcher:  deps.Dispatcher,
		defaultTags: deps.DefaultTags,
		now:         now,
		loc:         loc,
		logger:      logger,
	}
}

// Now reports the service clock.
func (s *TicketService) Now() time.Time {
	return s.now().In(s.loc)
}

// Create validates input and stores a new open ticket. Nothing is written
// when validation fails.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errorutil.NewValidationError("title is required", map[string]any{"field": "title"})
	}

	priority := domain.DefaultPriority
	if input.Priority != nil {
		priority = *input.Priority
	}
	if !domain.ValidPriority(priority) {
		return nil, errorutil.NewValidationError("priority must be between 1 and 5",
			map[string]any{"field": "priority", "value": priority})
	}

	due, err := domain.ParseDue(input.Due, s.loc)
	if err != nil {
		return nil, errorutil.NewValidationError(err.Error(), map[string]any{"field": "due"})
	}

	tags := domain.NormalizeTags(input.Tags)
	if tags == nil {
		tags = domain.NormalizeTags(s.defaultTags)
	}

	var notes *string
	if n := strings.TrimSpace(input.Notes); n != "" {
		notes = &n
	}

	ticket := &domain.Ticket{
		ID:        uuid.NewString(),
		Title:     title,
		Notes:     notes,
		Priority:  priority,
		DueAt:     due,
		Status:    domain.TicketStatusOpen,
		Tags:      tags,
		CreatedAt: s.Now().Truncate(time.Second),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
			Due:      ticket.DueDate(),
			Tags:     ticket.Tags,
		},
	})
	return ticket, nil
}

// Get fetches a ticket by id.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

// Close marks a ticket done. Closing an already closed ticket returns it
// unchanged.
func (s *TicketService) Close(ctx context.Context, id string) (*domain.Ticket, error) {
	before, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !before.IsOpen() {
		return before, nil
	}

	ticket, err := s.tickets.Close(ctx, id, s.Now().Truncate(time.Second))
	if err != nil {
		return nil, err
	}
	if ticket.ClosedAt != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketClosed,
			TicketID: ticket.ID,
			Payload: events.TicketClosedPayload{
				Title:    ticket.Title,
				ClosedAt: *ticket.ClosedAt,
			},
		})
	}
	return ticket, nil
}

// ListOpen returns every open ticket by priority.
func (s *TicketService) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.ListOpen(ctx, repository.OpenFilter{})
}

// ListToday returns open tickets that are overdue, due today, or undated.
func (s *TicketService) ListToday(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	today := dates.StartOfDay(now)
	return s.tickets.ListOpen(ctx, repository.OpenFilter{
		DueOnOrBefore:  &today,
		IncludeUndated: true,
	})
}

// ListUndated returns open tickets without a due date.
func (s *TicketService) ListUndated(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.ListOpen(ctx, repository.OpenFilter{UndatedOnly: true})
}

// ListWeek returns the Monday-Sunday week containing now.
func (s *TicketService) ListWeek(ctx context.Context, now time.Time) (*WeekView, error) {
	start, end := dates.StartOfWeek(now), dates.EndOfWeek(now)
	dated, err := s.tickets.ListOpen(ctx, repository.OpenFilter{
		DueFrom: &start,
		DueTo:   &end,
		Order:   repository.OrderDue,
	})
	if err != nil {
		return nil, err
	}
	undated, err := s.ListUndated(ctx)
	if err != nil {
		return nil, err
	}
	return &WeekView{Start: start, End: end, Dated: dated, Undated: undated}, nil
}

// ListMonth returns the calendar month containing now.
func (s *TicketService) ListMonth(ctx context.Context, now time.Time) (*MonthView, error) {
	start, end := dates.StartOfMonth(now), dates.EndOfMonth(now)
	tickets, err := s.tickets.ListOpen(ctx, repository.OpenFilter{
		DueFrom: &start,
		DueTo:   &end,
		Order:   repository.OrderDue,
	})
	if err != nil {
		return nil, err
	}
	byDay := make(map[string][]domain.Ticket)
	for _, t := range tickets {
		key := t.DueDate()
		byDay[key] = append(byDay[key], t)
	}
	return &MonthView{
		Start: start,
		End:   end,
		Days:  dates.DaysInRange(start, end),
		ByDay: byDay,
	}, nil
}

// ListClosed returns the history, most recently closed first.
func (s *TicketService) ListClosed(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.ListClosed(ctx)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, s.Now(), event)
}

// publish fills in the event id and time and dispatches it. Subscriber
// errors are logged; they never fail the operation that raised the event.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, now time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event subscriber failed",
			zap.String("event", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
