package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/config"
	"github.com/spec-kit/tickets/internal/domain"
	"github.com/spec-kit/tickets/internal/persistence"
	"github.com/spec-kit/tickets/pkg/util/errorutil"
)

var testLoc = time.UTC

func newSQLiteRepo(t *testing.T) TicketRepository {
	t.Helper()
	ctx := context.Background()
	db, err := persistence.OpenSQLite(ctx, filepath.Join(t.TempDir(), "tickets.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.MigrateSQLite(ctx, db.DB, zap.NewNop()))
	return NewSQLiteTicketRepository(db.DB, testLoc)
}

func at(day string) *time.Time {
	t, err := time.ParseInLocation(domain.DateLayout, day, testLoc)
	if err != nil {
		panic(err)
	}
	return &t
}

// seedTicket inserts an open ticket and returns its id.
func seedTicket(t *testing.T, repo TicketRepository, title string, priority int, due *time.Time, created time.Time) string {
	t.Helper()
	ticket := &domain.Ticket{
		ID:        uuid.NewString(),
		Title:     title,
		Priority:  priority,
		DueAt:     due,
		Status:    domain.TicketStatusOpen,
		CreatedAt: created,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))
	return ticket.ID
}

func titles(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.Title)
	}
	return out
}

// runRepositorySuite exercises behavior shared by every store.
func runRepositorySuite(t *testing.T, newRepo func(t *testing.T) TicketRepository) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, testLoc)

	t.Run("create and get round trip", func(t *testing.T) {
		repo := newRepo(t)
		notes := "bring receipts"
		tags := "work,finance"
		due := time.Date(2026, 2, 6, 14, 30, 0, 0, testLoc)
		ticket := &domain.Ticket{
			ID:        uuid.NewString(),
			Title:     "File taxes",
			Notes:     &notes,
			Priority:  4,
			DueAt:     &due,
			Status:    domain.TicketStatusOpen,
			Tags:      &tags,
			CreatedAt: base,
		}
		require.NoError(t, repo.Create(context.Background(), ticket))

		got, err := repo.GetByID(context.Background(), ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, "File taxes", got.Title)
		require.NotNil(t, got.Notes)
		assert.Equal(t, notes, *got.Notes)
		assert.Equal(t, 4, got.Priority)
		require.NotNil(t, got.DueAt)
		assert.Equal(t, "2026-02-06", got.DueDate())
		assert.Equal(t, 14, got.DueAt.Hour())
		assert.Equal(t, domain.TicketStatusOpen, got.Status)
		require.NotNil(t, got.Tags)
		assert.Equal(t, tags, *got.Tags)
		assert.True(t, got.CreatedAt.Equal(base))
		assert.Nil(t, got.ClosedAt)
	})

	t.Run("get unknown id is not found", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByID(context.Background(), "missing")
		assert.True(t, errorutil.IsNotFound(err))
	})

	t.Run("open ordering by priority", func(t *testing.T) {
		repo := newRepo(t)
		seedTicket(t, repo, "A", 2, at("2026-02-05"), base)
		seedTicket(t, repo, "B", 5, nil, base.Add(time.Minute))
		seedTicket(t, repo, "C", 2, nil, base.Add(2*time.Minute))

		got, err := repo.ListOpen(context.Background(), OpenFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "A", "C"}, titles(got))
	})

	t.Run("open ordering by due", func(t *testing.T) {
		repo := newRepo(t)
		seedTicket(t, repo, "late", 5, at("2026-02-07"), base)
		seedTicket(t, repo, "undated", 5, nil, base)
		seedTicket(t, repo, "early low", 1, at("2026-02-03"), base)
		seedTicket(t, repo, "early high", 3, at("2026-02-03"), base)

		got, err := repo.ListOpen(context.Background(), OpenFilter{Order: OrderDue})
		require.NoError(t, err)
		assert.Equal(t, []string{"early high", "early low", "late", "undated"}, titles(got))
	})

	t.Run("due range is inclusive and excludes undated", func(t *testing.T) {
		repo := newRepo(t)
		late := time.Date(2026, 2, 8, 23, 30, 0, 0, testLoc)
		seedTicket(t, repo, "before", 2, at("2026-02-01"), base)
		seedTicket(t, repo, "monday", 2, at("2026-02-02"), base)
		seedTicket(t, repo, "sunday night", 2, &late, base)
		seedTicket(t, repo, "after", 2, at("2026-02-09"), base)
		seedTicket(t, repo, "undated", 2, nil, base)

		got, err := repo.ListOpen(context.Background(), OpenFilter{
			DueFrom: at("2026-02-02"),
			DueTo:   at("2026-02-08"),
			Order:   OrderDue,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"monday", "sunday night"}, titles(got))
	})

	t.Run("undated only", func(t *testing.T) {
		repo := newRepo(t)
		seedTicket(t, repo, "dated", 2, at("2026-02-02"), base)
		seedTicket(t, repo, "undated", 2, nil, base)

		got, err := repo.ListOpen(context.Background(), OpenFilter{UndatedOnly: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"undated"}, titles(got))
	})

	t.Run("today view includes overdue and undated", func(t *testing.T) {
		repo := newRepo(t)
		seedTicket(t, repo, "overdue", 3, at("2026-02-01"), base)
		seedTicket(t, repo, "today", 3, at("2026-02-04"), base.Add(time.Minute))
		seedTicket(t, repo, "tomorrow", 5, at("2026-02-05"), base)
		seedTicket(t, repo, "undated", 1, nil, base)

		got, err := repo.ListOpen(context.Background(), OpenFilter{
			DueOnOrBefore:  at("2026-02-04"),
			IncludeUndated: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"overdue", "today", "undated"}, titles(got))
	})

	t.Run("close moves ticket to history", func(t *testing.T) {
		repo := newRepo(t)
		id := seedTicket(t, repo, "X", 2, nil, base)
		closedAt := base.Add(time.Hour)

		closed, err := repo.Close(context.Background(), id, closedAt)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, closed.Status)
		require.NotNil(t, closed.ClosedAt)
		assert.True(t, closed.ClosedAt.Equal(closedAt))

		open, err := repo.ListOpen(context.Background(), OpenFilter{})
		require.NoError(t, err)
		assert.Empty(t, open)

		history, err := repo.ListClosed(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"X"}, titles(history))
	})

	t.Run("closing twice keeps the first close time", func(t *testing.T) {
		repo := newRepo(t)
		id := seedTicket(t, repo, "X", 2, nil, base)
		first := base.Add(time.Hour)

		_, err := repo.Close(context.Background(), id, first)
		require.NoError(t, err)
		again, err := repo.Close(context.Background(), id, first.Add(time.Hour))
		require.NoError(t, err)
		require.NotNil(t, again.ClosedAt)
		assert.True(t, again.ClosedAt.Equal(first))
	})

	t.Run("close unknown id is not found", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Close(context.Background(), "missing", base)
		assert.True(t, errorutil.IsNotFound(err))
	})

	t.Run("history ordered by most recent close", func(t *testing.T) {
		repo := newRepo(t)
		first := seedTicket(t, repo, "first", 2, nil, base)
		second := seedTicket(t, repo, "second", 2, nil, base)
		_, err := repo.Close(context.Background(), first, base.Add(time.Hour))
		require.NoError(t, err)
		_, err = repo.Close(context.Background(), second, base.Add(2*time.Hour))
		require.NoError(t, err)

		history, err := repo.ListClosed(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"second", "first"}, titles(history))
	})
}

func TestSQLiteTicketRepository(t *testing.T) {
	runRepositorySuite(t, newSQLiteRepo)
}

func TestSQLiteTicketRepository_ReadsLegacyTimestamps(t *testing.T) {
	ctx := context.Background()
	db, err := persistence.OpenSQLite(ctx, filepath.Join(t.TempDir(), "tickets.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.MigrateSQLite(ctx, db.DB, zap.NewNop()))

	_, err = db.DB.ExecContext(ctx, `INSERT INTO tickets (id, title, priority, due_at, status, created_at)
		VALUES ('legacy', 'Old', 2, '2026-02-06', 'open', '2026-02-01T10:00:00.123456')`)
	require.NoError(t, err)

	repo := NewSQLiteTicketRepository(db.DB, testLoc)
	got, err := repo.GetByID(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-06", got.DueDate())
	assert.Equal(t, 2026, got.CreatedAt.Year())
}

func newPostgresRepo(t *testing.T, loc *time.Location) TicketRepository {
	t.Helper()
	dsn := os.Getenv("TICKETS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TICKETS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, config.DatabaseConfig{DSN: dsn}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })
	require.NoError(t, persistence.MigratePostgres(ctx, pg.PoolHandle(), zap.NewNop()))
	_, err = pg.PoolHandle().Exec(ctx, "TRUNCATE tickets")
	require.NoError(t, err)
	return NewPostgresTicketRepository(pg.PoolHandle(), loc)
}

func TestPostgresTicketRepository(t *testing.T) {
	runRepositorySuite(t, func(t *testing.T) TicketRepository {
		return newPostgresRepo(t, testLoc)
	})
}

func TestPostgresTicketRepository_KeepsLocalWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	repo := newPostgresRepo(t, loc)
	ctx := context.Background()

	due := time.Date(2026, 2, 6, 0, 30, 0, 0, loc)
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, loc)
	id := seedTicket(t, repo, "early", 2, &due, created)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.DueAt)
	assert.Equal(t, "2026-02-06", got.DueDate())
	assert.Equal(t, 0, got.DueAt.Hour())
	assert.Equal(t, 30, got.DueAt.Minute())
	assert.Equal(t, 9, got.CreatedAt.Hour())

	// 00:30 at UTC+5 is the previous day in UTC; the day filter follows loc.
	day := time.Date(2026, 2, 6, 12, 0, 0, 0, loc)
	open, err := repo.ListOpen(ctx, OpenFilter{DueFrom: &day, DueTo: &day})
	require.NoError(t, err)
	assert.Equal(t, []string{"early"}, titles(open))
}
