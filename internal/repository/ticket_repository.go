package repository

import (
	"context"
	"time"

	"github.com/spec-kit/tickets/internal/domain"
)

// OpenOrder selects how open tickets are sorted.
type OpenOrder int

const (
	// OrderPriority sorts by priority descending, then due ascending with
	// undated tickets last.
	OrderPriority OpenOrder = iota
	// OrderDue sorts by due ascending (undated last), then priority descending.
	OrderDue
)

// OpenFilter narrows ListOpen. Date bounds compare calendar days inclusively.
type OpenFilter struct {
	DueFrom        *time.Time
	DueTo          *time.Time
	DueOnOrBefore  *time.Time
	IncludeUndated bool
	UndatedOnly    bool
	Order          OpenOrder
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Close moves an open ticket to closed. A ticket that is already closed
	// is returned unchanged.
	Close(ctx context.Context, id string, closedAt time.Time) (*domain.Ticket, error)
	ListOpen(ctx context.Context, filter OpenFilter) ([]domain.Ticket, error)
	ListClosed(ctx context.Context) ([]domain.Ticket, error)
}
