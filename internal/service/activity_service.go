package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/events"
	"github.com/spec-kit/tickets/internal/observability"
)

// ActivityService writes an activity log line for every domain event and
// counts failed print jobs.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *ActivityService {
	return &ActivityService{
		dispatcher: dispatcher,
		logger:     logger.Named("activity"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketCreated)
	a.dispatcher.Subscribe(events.EventTicketClosed, a.handleTicketClosed)
	a.dispatcher.Subscribe(events.EventSheetPrinted, a.handleSheetPrinted)
}

func (a *ActivityService) handleTicketCreated(_ context.Context, event events.Event) error {
	a.logger.Info("TicketCreated", a.fields(event)...)
	return nil
}

func (a *ActivityService) handleTicketClosed(_ context.Context, event events.Event) error {
	a.logger.Info("TicketClosed", a.fields(event)...)
	return nil
}

func (a *ActivityService) handleSheetPrinted(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SheetPrintedPayload)
	if ok && payload.Err != "" {
		a.metrics.RecordPrintFailure()
		a.logger.Warn("SheetPrinted", a.fields(event)...)
		return nil
	}
	a.logger.Info("SheetPrinted", a.fields(event)...)
	return nil
}

func (a *ActivityService) fields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	}
	if event.TicketID != "" {
		fields = append(fields, zap.String("ticket_id", event.TicketID))
	}
	return fields
}
