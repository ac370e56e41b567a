package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketClosed  EventType = "ticket_closed"
	EventSheetPrinted  EventType = "sheet_printed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string  `json:"title"`
	Priority int     `json:"priority"`
	Due      string  `json:"due,omitempty"`
	Tags     *string `json:"tags,omitempty"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Title    string    `json:"title"`
	ClosedAt time.Time `json:"closed_at"`
}

// SheetKind names what was sent to the printer.
type SheetKind string

const (
	SheetTest   SheetKind = "test"
	SheetTicket SheetKind = "ticket"
	SheetWeek   SheetKind = "week"
	SheetToday  SheetKind = "today"
	SheetFree   SheetKind = "free"
)

// SheetPrintedPayload payload.
type SheetPrintedPayload struct {
	Kind  SheetKind `json:"kind"`
	Lines int       `json:"lines"`
	Sink  string    `json:"sink"`
	// Err is set when the sink failed and output fell back or was lost.
	Err string `json:"error,omitempty"`
}
