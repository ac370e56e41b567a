package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	maxRetries   = 5
	initialWait  = 100 * time.Millisecond
	maxOpenConns = 10
	maxIdleConns = 5
	busyTimeout  = 5000 // milliseconds
)

// SQLite wraps the ticket database file.
type SQLite struct {
	DB   *sqlx.DB
	Path string
}

// OpenSQLite opens (creating if needed) the database at path in WAL mode
// with a busy timeout so concurrent writers queue instead of failing.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, busyTimeout)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(0)

	// modernc registers as "sqlite"; sqlx keys bind styles off the mattn name.
	db := sqlx.NewDb(conn, "sqlite3")
	s := &SQLite{DB: db, Path: path}

	if err := s.pingWithRetry(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("opened sqlite", zap.String("path", path))
	return s, nil
}

// Close releases the connection pool.
func (s *SQLite) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SQLite) pingWithRetry(ctx context.Context) error {
	wait := initialWait
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = s.DB.PingContext(ctx); err == nil {
			return nil
		}
		if i < maxRetries-1 {
			time.Sleep(wait)
			wait *= 2
		}
	}
	return fmt.Errorf("ping sqlite after %d retries: %w", maxRetries, err)
}
