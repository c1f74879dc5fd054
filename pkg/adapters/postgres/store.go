// Package postgres provides a SessionStore on PostgreSQL through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable holds the sessions unless WithTable says otherwise.
const DefaultTable = "waypoint_sessions"

// Store implements ports.SessionStore with a JSON document per session.
// JSON rather than JSONB keeps the score keys in insertion order.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

type Option func(*Store)

// WithTable overrides the table name. The name is not quoted.
func WithTable(name string) Option {
	return func(s *Store) {
		s.table = name
	}
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// New creates a store over pool. Call Migrate once before use.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the sessions table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id         TEXT PRIMARY KEY,
			flow_id    TEXT NOT NULL,
			done       BOOLEAN NOT NULL DEFAULT FALSE,
			data       JSON NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS %[1]s_flow_id ON %[1]s (flow_id);
	`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("migrate sessions: %w", err)
	}
	return nil
}

// Ping checks the pool is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Save upserts the session document.
func (s *Store) Save(ctx context.Context, sessionID string, session *domain.SessionContext) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, flow_id, done, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			flow_id = EXCLUDED.flow_id,
			done = EXCLUDED.done,
			data = EXCLUDED.data,
			updated_at = now()
	`, s.table)
	if _, err := s.pool.Exec(ctx, query, sessionID, session.FlowID, session.Done, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load fetches a session.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.SessionContext, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.table)

	var data string
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session domain.SessionContext
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	session.Normalize()
	return &session, nil
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns all session ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT id FROM %s ORDER BY id`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan session ids: %w", err)
	}
	return ids, nil
}
