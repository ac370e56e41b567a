package dto

import (
	"time"

	"github.com/spec-kit/tickets/internal/domain"
	"github.com/spec-kit/tickets/internal/service"
)

// CreateTicketRequest is the JSON payload for POST /api/tickets.
type CreateTicketRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Notes    string `json:"notes" validate:"max=2000"`
	Priority *int   `json:"priority" validate:"omitempty,min=1,max=5"`
	Due      string `json:"due" validate:"max=32"`
	Tags     string `json:"tags" validate:"max=200"`
}

// ToInput converts the request into service input.
func (r CreateTicketRequest) ToInput() service.TicketCreateInput {
	return service.TicketCreateInput{
		Title:    r.Title,
		Notes:    r.Notes,
		Priority: r.Priority,
		Due:      r.Due,
		Tags:     r.Tags,
	}
}

// TicketForm is the HTML form posted to /add. Fields arrive as strings.
type TicketForm struct {
	Title    string `form:"title" validate:"max=200"`
	Notes    string `form:"notes" validate:"max=2000"`
	Priority string `form:"priority" validate:"omitempty,number"`
	DueDate  string `form:"due_date" validate:"max=32"`
	Tags     string `form:"tags" validate:"max=200"`
}

// FreeTextForm is the HTML form posted to /print/free.
type FreeTextForm struct {
	Text string `form:"free_text" json:"text" validate:"max=4000"`
}

// TokenRequest is the JSON payload for POST /api/token.
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TicketResponse is the JSON form of a ticket.
type TicketResponse struct {
	ID        string              `json:"id"`
	ShortID   string              `json:"short_id"`
	Title     string              `json:"title"`
	Notes     *string             `json:"notes"`
	Priority  int                 `json:"priority"`
	DueAt     *time.Time          `json:"due_at"`
	DueDate   string              `json:"due_date,omitempty"`
	Status    domain.TicketStatus `json:"status"`
	Tags      []string            `json:"tags"`
	CreatedAt time.Time           `json:"created_at"`
	ClosedAt  *time.Time          `json:"closed_at"`
}

// WeekResponse is the JSON form of the weekly view.
type WeekResponse struct {
	Start   string           `json:"start"`
	End     string           `json:"end"`
	Dated   []TicketResponse `json:"dated"`
	Undated []TicketResponse `json:"undated"`
}

// MonthResponse is the JSON form of the monthly view. Days is keyed by
// calendar date and only lists days with tickets.
type MonthResponse struct {
	Start string                      `json:"start"`
	End   string                      `json:"end"`
	Days  map[string][]TicketResponse `json:"days"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	tags := t.TagList()
	if tags == nil {
		tags = []string{}
	}
	return TicketResponse{
		ID:        t.ID,
		ShortID:   t.ShortID(),
		Title:     t.Title,
		Notes:     t.Notes,
		Priority:  t.Priority,
		DueAt:     t.DueAt,
		DueDate:   t.DueDate(),
		Status:    t.Status,
		Tags:      tags,
		CreatedAt: t.CreatedAt,
		ClosedAt:  t.ClosedAt,
	}
}

// NewTicketList maps a slice of domain tickets.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewWeekResponse maps the weekly view.
func NewWeekResponse(w *service.WeekView) WeekResponse {
	return WeekResponse{
		Start:   w.Start.Format(domain.DateLayout),
		End:     w.End.Format(domain.DateLayout),
		Dated:   NewTicketList(w.Dated),
		Undated: NewTicketList(w.Undated),
	}
}

// NewMonthResponse maps the monthly view.
func NewMonthResponse(m *service.MonthView) MonthResponse {
	days := make(map[string][]TicketResponse, len(m.ByDay))
	for key, tickets := range m.ByDay {
		days[key] = NewTicketList(tickets)
	}
	return MonthResponse{
		Start: m.Start.Format(domain.DateLayout),
		End:   m.End.Format(domain.DateLayout),
		Days:  days,
	}
}
