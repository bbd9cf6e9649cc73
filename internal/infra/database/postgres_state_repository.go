package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"homework_status_bot/internal/domain/homework"

	"github.com/lib/pq"
)

const postgresStateSchema = `CREATE TABLE IF NOT EXISTS poll_state (
	state_key  TEXT PRIMARY KEY,
	from_date  BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStateRepository stores one poll_state row per state key (the chat id).
type PostgresStateRepository struct {
	db  *sql.DB
	key string
}

func NewPostgresStateRepository(ctx context.Context, db *sql.DB, key string) (*PostgresStateRepository, error) {
	if _, err := db.ExecContext(ctx, postgresStateSchema); err != nil {
		// Concurrent CREATE TABLE IF NOT EXISTS can race on the catalog.
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code.Name() != "unique_violation" {
			return nil, fmt.Errorf("error creating poll_state table: %w", err)
		}
	}
	return &PostgresStateRepository{db: db, key: key}, nil
}

func (r *PostgresStateRepository) Load(ctx context.Context) (*homework.State, error) {
	query := `SELECT from_date, updated_at FROM poll_state WHERE state_key = $1`
	st := &homework.State{}
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(&st.FromDate, &st.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("error loading poll state: %w", err)
	}
	return st, nil
}

func (r *PostgresStateRepository) Save(ctx context.Context, st *homework.State) error {
	query := `INSERT INTO poll_state (state_key, from_date, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (state_key) DO UPDATE
               SET from_date = EXCLUDED.from_date, updated_at = NOW()
               RETURNING updated_at`
	if err := r.db.QueryRowContext(ctx, query, r.key, st.FromDate).Scan(&st.UpdatedAt); err != nil {
		return fmt.Errorf("error saving poll state: %w", err)
	}
	return nil
}
