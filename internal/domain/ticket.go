package domain

import (
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Priority bounds. Higher numbers sort first.
const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 2
)

// TimestampLayout is the canonical text form of stored timestamps.
const TimestampLayout = "2006-01-02T15:04:05"

// DateLayout is the calendar-date form used for due dates and range filters.
const DateLayout = "2006-01-02"

// Ticket is a single task/reminder record.
type Ticket struct {
	ID        string
	Title     string
	Notes     *string
	Priority  int
	DueAt     *time.Time
	Status    TicketStatus
	Tags      *string
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// IsOpen reports whether the ticket can still be marked done.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

// TagList splits the normalized tag string.
func (t *Ticket) TagList() []string {
	if t.Tags == nil || *t.Tags == "" {
		return nil
	}
	return splitTags(*t.Tags)
}

// DueDate returns the calendar part of the due timestamp, or "" when undated.
func (t *Ticket) DueDate() string {
	if t.DueAt == nil {
		return ""
	}
	return t.DueAt.Format(DateLayout)
}

// ShortID is the first eight characters of the identifier, used on paper.
func (t *Ticket) ShortID() string {
	if len(t.ID) <= 8 {
		return t.ID
	}
	return t.ID[:8]
}

// ValidPriority reports whether p lies within [MinPriority, MaxPriority].
func ValidPriority(p int) bool {
	return p >= MinPriority && p <= MaxPriority
}
