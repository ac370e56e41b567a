package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/config"
	"github.com/spec-kit/tickets/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "tickets.db")},
		Printer:  config.PrinterConfig{Columns: 32, Device: "tcp://127.0.0.1:1"},
		Tickets:  config.TicketsConfig{DefaultTags: "work,personal"},
	}
}

func TestNew_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	out := &bytes.Buffer{}
	a, err := New(ctx, testConfig(t), zap.NewNop(), Options{Console: out, ForceConsole: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, config.DriverSQLite, a.StoreName)
	require.NoError(t, a.Store.Ping(ctx))

	ticket, err := a.Tickets.Create(ctx, service.TicketCreateInput{Title: "Water plants"})
	require.NoError(t, err)
	require.NoError(t, a.Printing.PrintTicket(ctx, ticket.ID))
	assert.Contains(t, out.String(), "WATER PLANTS")
}

func TestNew_ReopensExistingDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	first, err := New(ctx, cfg, zap.NewNop(), Options{ForceConsole: true, Console: &bytes.Buffer{}})
	require.NoError(t, err)
	_, err = first.Tickets.Create(ctx, service.TicketCreateInput{Title: "Persisted"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(ctx, cfg, zap.NewNop(), Options{ForceConsole: true, Console: &bytes.Buffer{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })
	open, err := second.Tickets.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "Persisted", open[0].Title)
}

func TestNew_UnreachablePrinterFallsBackAndCounts(t *testing.T) {
	ctx := context.Background()
	out := &bytes.Buffer{}
	a, err := New(ctx, testConfig(t), zap.NewNop(), Options{
		Console: out,
		Now:     func() time.Time { return time.Date(2026, 2, 4, 9, 0, 0, 0, time.Local) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.Printing.PrintTest(ctx))
	assert.Contains(t, out.String(), service.TestPageText)
	assert.Positive(t, a.Metrics.Snapshot().PrintFailures)
}

func TestNew_PostgresWithoutDSNFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = config.DriverPostgres
	_, err := New(context.Background(), cfg, zap.NewNop(), Options{ForceConsole: true})
	require.Error(t, err)
}
