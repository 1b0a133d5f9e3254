package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/clipscout/clipscout/internal/logger"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultPingTimeout     = 5 * time.Second
)

// NewPostgresConnection opens a pooled connection and verifies it with a ping.
func NewPostgresConnection(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}
	return db, nil
}

// PostgresStore keeps every destination in one queue_items table, ordered by
// insertion ID.
type PostgresStore struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewPostgresStore wraps an open connection and ensures the schema exists.
func NewPostgresStore(db *sqlx.DB, log logger.Logger) (*PostgresStore, error) {
	s := &PostgresStore{db: db, logger: log}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS queue_items (
			id BIGSERIAL PRIMARY KEY,
			destination TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_queue_items_destination
			ON queue_items (destination, id)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure queue schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, dest Destination, payload json.RawMessage) error {
	query := `INSERT INTO queue_items (destination, payload, created_at) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, string(dest), []byte(payload), time.Now()); err != nil {
		return fmt.Errorf("failed to append to %s: %w", dest, err)
	}
	return nil
}

func (s *PostgresStore) DequeueNext(ctx context.Context, dest Destination) (*Item, error) {
	var row struct {
		ID      int64  `db:"id"`
		Payload []byte `db:"payload"`
	}
	query := `SELECT id, payload FROM queue_items WHERE destination = $1 ORDER BY id LIMIT 1`

	err := s.db.GetContext(ctx, &row, query, string(dest))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to peek %s: %w", dest, err)
	}

	return &Item{
		Handle:  strconv.FormatInt(row.ID, 10),
		Payload: json.RawMessage(row.Payload),
	}, nil
}

func (s *PostgresStore) Remove(ctx context.Context, dest Destination, item *Item) error {
	id, err := strconv.ParseInt(item.Handle, 10, 64)
	if err != nil {
		return fmt.Errorf("bad item handle %q: %w", item.Handle, err)
	}

	query := `DELETE FROM queue_items WHERE id = $1 AND destination = $2`
	result, err := s.db.ExecContext(ctx, query, id, string(dest))
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", dest, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", dest, err)
	}
	if affected == 0 {
		return ErrEmpty
	}
	return nil
}

func (s *PostgresStore) Len(ctx context.Context, dest Destination) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM queue_items WHERE destination = $1`
	if err := s.db.GetContext(ctx, &count, query, string(dest)); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", dest, err)
	}
	return count, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
