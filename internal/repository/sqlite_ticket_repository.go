package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/spec-kit/tickets/internal/dates"
	"github.com/spec-kit/tickets/internal/domain"
	"github.com/spec-kit/tickets/pkg/util/errorutil"
)

const ticketColumns = `id, title, notes, priority, due_at, status, created_at, closed_at, tags`

// storedLayouts covers the canonical layout plus the shapes found in
// databases written by other tools (date-only dues, minute precision).
var storedLayouts = []string{
	domain.TimestampLayout,
	domain.DateLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

type sqliteTicketRow struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	Notes     sql.NullString `db:"notes"`
	Priority  int            `db:"priority"`
	DueAt     sql.NullString `db:"due_at"`
	Status    string         `db:"status"`
	CreatedAt string         `db:"created_at"`
	ClosedAt  sql.NullString `db:"closed_at"`
	Tags      sql.NullString `db:"tags"`
}

type sqliteTicketRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

// NewSQLiteTicketRepository instantiates the SQLite-backed store. Stored
// timestamps are local wall-clock text in loc (time.Local when nil).
func NewSQLiteTicketRepository(db *sqlx.DB, loc *time.Location) TicketRepository {
	if loc == nil {
		loc = time.Local
	}
	return &sqliteTicketRepository{db: db, loc: loc}
}

func (r *sqliteTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, notes, priority, due_at, status, created_at, closed_at, tags)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		ticket.ID,
		ticket.Title,
		nullString(ticket.Notes),
		ticket.Priority,
		r.formatTime(ticket.DueAt),
		string(ticket.Status),
		ticket.CreatedAt.In(r.loc).Format(domain.TimestampLayout),
		r.formatTime(ticket.ClosedAt),
		nullString(ticket.Tags),
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *sqliteTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var row sqliteTicketRow
	err := r.db.GetContext(ctx, &row, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return r.toDomain(row)
}

func (r *sqliteTicketRepository) Close(ctx context.Context, id string, closedAt time.Time) (*domain.Ticket, error) {
	const query = `UPDATE tickets SET status = 'closed', closed_at = ? WHERE id = ? AND status = 'open'`
	if _, err := r.db.ExecContext(ctx, query, closedAt.In(r.loc).Format(domain.TimestampLayout), id); err != nil {
		return nil, fmt.Errorf("close ticket %s: %w", id, err)
	}
	return r.GetByID(ctx, id)
}

func (r *sqliteTicketRepository) ListOpen(ctx context.Context, filter OpenFilter) ([]domain.Ticket, error) {
	clauses := []string{"status = 'open'"}
	args := []any{}

	if filter.UndatedOnly {
		clauses = append(clauses, "due_at IS NULL")
	}
	if filter.DueFrom != nil {
		args = append(args, dates.DateKey(*filter.DueFrom))
		clauses = append(clauses, "due_at IS NOT NULL AND date(due_at) >= date(?)")
	}
	if filter.DueTo != nil {
		args = append(args, dates.DateKey(*filter.DueTo))
		clauses = append(clauses, "due_at IS NOT NULL AND date(due_at) <= date(?)")
	}
	if filter.DueOnOrBefore != nil {
		args = append(args, dates.DateKey(*filter.DueOnOrBefore))
		if filter.IncludeUndated {
			clauses = append(clauses, "(due_at IS NULL OR date(due_at) <= date(?))")
		} else {
			clauses = append(clauses, "due_at IS NOT NULL AND date(due_at) <= date(?)")
		}
	}

	order := "priority DESC, due_at IS NULL, due_at ASC, created_at ASC"
	if filter.Order == OrderDue {
		order = "due_at IS NULL, due_at ASC, priority DESC, created_at ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s`,
		ticketColumns, strings.Join(clauses, " AND "), order)
	return r.selectTickets(ctx, query, args...)
}

func (r *sqliteTicketRepository) ListClosed(ctx context.Context) ([]domain.Ticket, error) {
	return r.selectTickets(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE status = 'closed' ORDER BY closed_at DESC`)
}

func (r *sqliteTicketRepository) selectTickets(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	var rows []sqliteTicketRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	result := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		ticket, err := r.toDomain(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *sqliteTicketRepository) toDomain(row sqliteTicketRow) (*domain.Ticket, error) {
	created, err := r.parseTime(row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ticket %s created_at: %w", row.ID, err)
	}
	ticket := &domain.Ticket{
		ID:        row.ID,
		Title:     row.Title,
		Notes:     stringPtr(row.Notes),
		Priority:  row.Priority,
		Status:    domain.TicketStatus(row.Status),
		Tags:      stringPtr(row.Tags),
		CreatedAt: created,
	}
	if ticket.DueAt, err = r.parseNullTime(row.DueAt); err != nil {
		return nil, fmt.Errorf("ticket %s due_at: %w", row.ID, err)
	}
	if ticket.ClosedAt, err = r.parseNullTime(row.ClosedAt); err != nil {
		return nil, fmt.Errorf("ticket %s closed_at: %w", row.ID, err)
	}
	return ticket, nil
}

func (r *sqliteTicketRepository) formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.In(r.loc).Format(domain.TimestampLayout)
}

func (r *sqliteTicketRepository) parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil, nil
	}
	t, err := r.parseTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *sqliteTicketRepository) parseTime(s string) (time.Time, error) {
	for _, layout := range storedLayouts {
		if t, err := time.ParseInLocation(layout, s, r.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
