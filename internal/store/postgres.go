package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Predefined errors for store operations
var (
	ErrValueNotFound  = errors.New("store: session value not found")
	ErrEmptySessionID = errors.New("store: session id is required")
)

// PostgresStore implements SessionStorer using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetValue(ctx context.Context, sessionID, key string) (string, error) {
	if sessionID == "" {
		return "", ErrEmptySessionID
	}
	query := `
		SELECT value
		FROM storefront.session_values
		WHERE session_id = $1 AND key = $2;
	`
	var value string
	err := s.db.QueryRowContext(ctx, query, sessionID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrValueNotFound
		}
		return "", fmt.Errorf("store: GetValue failed to scan row: %w", err)
	}
	return value, nil
}

// PutValue inserts or overwrites a single session value.
func (s *PostgresStore) PutValue(ctx context.Context, sessionID, key, value string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	query := `
		INSERT INTO storefront.session_values (session_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = CURRENT_TIMESTAMP;
	`
	if _, err := s.db.ExecContext(ctx, query, sessionID, key, value); err != nil {
		return fmt.Errorf("store: PutValue failed for key %q: %w", key, err)
	}
	return nil
}

// DeleteValues removes the given keys. Deleting absent keys is not an error.
func (s *PostgresStore) DeleteValues(ctx context.Context, sessionID string, keys ...string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if len(keys) == 0 {
		return nil
	}
	query := `
		DELETE FROM storefront.session_values
		WHERE session_id = $1 AND key = ANY($2);
	`
	if _, err := s.db.ExecContext(ctx, query, sessionID, pq.Array(keys)); err != nil {
		return fmt.Errorf("store: DeleteValues failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
