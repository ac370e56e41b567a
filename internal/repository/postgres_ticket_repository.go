package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/tickets/internal/dates"
	"github.com/spec-kit/tickets/internal/domain"
	"github.com/spec-kit/tickets/pkg/util/errorutil"
)

type postgresTicketRepository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPostgresTicketRepository instantiates the Postgres-backed store.
// Timestamps are stored as TIMESTAMPTZ and returned in loc (time.Local
// when nil); calendar filters use loc's day boundaries.
func NewPostgresTicketRepository(pool *pgxpool.Pool, loc *time.Location) TicketRepository {
	if loc == nil {
		loc = time.Local
	}
	return &postgresTicketRepository{pool: pool, loc: loc}
}

func (r *postgresTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, notes, priority, due_at, status, created_at, closed_at, tags)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Notes,
		ticket.Priority,
		ticket.DueAt,
		string(ticket.Status),
		ticket.CreatedAt,
		ticket.ClosedAt,
		ticket.Tags,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *postgresTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
	ticket, err := r.scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return ticket, nil
}

func (r *postgresTicketRepository) Close(ctx context.Context, id string, closedAt time.Time) (*domain.Ticket, error) {
	const query = `UPDATE tickets SET status='closed', closed_at=$1 WHERE id=$2 AND status='open'`
	if _, err := r.pool.Exec(ctx, query, closedAt, id); err != nil {
		return nil, fmt.Errorf("close ticket %s: %w", id, err)
	}
	return r.GetByID(ctx, id)
}

func (r *postgresTicketRepository) ListOpen(ctx context.Context, filter OpenFilter) ([]domain.Ticket, error) {
	clauses := []string{"status='open'"}
	args := []any{}

	if filter.UndatedOnly {
		clauses = append(clauses, "due_at IS NULL")
	}
	if filter.DueFrom != nil {
		args = append(args, r.startOfDay(*filter.DueFrom))
		clauses = append(clauses, fmt.Sprintf("due_at >= $%d", len(args)))
	}
	if filter.DueTo != nil {
		args = append(args, r.startOfDay(*filter.DueTo).AddDate(0, 0, 1))
		clauses = append(clauses, fmt.Sprintf("due_at < $%d", len(args)))
	}
	if filter.DueOnOrBefore != nil {
		args = append(args, r.startOfDay(*filter.DueOnOrBefore).AddDate(0, 0, 1))
		if filter.IncludeUndated {
			clauses = append(clauses, fmt.Sprintf("(due_at IS NULL OR due_at < $%d)", len(args)))
		} else {
			clauses = append(clauses, fmt.Sprintf("due_at < $%d", len(args)))
		}
	}

	order := "priority DESC, due_at ASC NULLS LAST, created_at ASC"
	if filter.Order == OrderDue {
		order = "due_at ASC NULLS LAST, priority DESC, created_at ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s`,
		ticketColumns, strings.Join(clauses, " AND "), order)
	return r.query(ctx, query, args...)
}

func (r *postgresTicketRepository) ListClosed(ctx context.Context) ([]domain.Ticket, error) {
	return r.query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE status='closed' ORDER BY closed_at DESC`)
}

func (r *postgresTicketRepository) query(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := r.scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// startOfDay is midnight of t's calendar day in the store location.
func (r *postgresTicketRepository) startOfDay(t time.Time) time.Time {
	return dates.StartOfDay(t.In(r.loc))
}

func (r *postgresTicketRepository) scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var status string
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Notes,
		&ticket.Priority,
		&ticket.DueAt,
		&status,
		&ticket.CreatedAt,
		&ticket.ClosedAt,
		&ticket.Tags,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	ticket.CreatedAt = ticket.CreatedAt.In(r.loc)
	ticket.DueAt = r.inLoc(ticket.DueAt)
	ticket.ClosedAt = r.inLoc(ticket.ClosedAt)
	return &ticket, nil
}

func (r *postgresTicketRepository) inLoc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	local := t.In(r.loc)
	return &local
}
