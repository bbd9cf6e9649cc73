package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"homework_status_bot/internal/domain/homework"
)

const sqliteStateSchema = `CREATE TABLE IF NOT EXISTS poll_state (
	state_key  TEXT PRIMARY KEY,
	from_date  INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

type SQLiteStateRepository struct {
	db  *sql.DB
	key string
}

func NewSQLiteStateRepository(ctx context.Context, db *sql.DB, key string) (*SQLiteStateRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteStateSchema); err != nil {
		return nil, fmt.Errorf("error creating poll_state table: %w", err)
	}
	return &SQLiteStateRepository{db: db, key: key}, nil
}

func (r *SQLiteStateRepository) Load(ctx context.Context) (*homework.State, error) {
	var fromDate, updatedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT from_date, updated_at FROM poll_state WHERE state_key = ?`, r.key,
	).Scan(&fromDate, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("error loading poll state: %w", err)
	}
	return &homework.State{FromDate: fromDate, UpdatedAt: time.Unix(updatedAt, 0)}, nil
}

func (r *SQLiteStateRepository) Save(ctx context.Context, st *homework.State) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO poll_state (state_key, from_date, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (state_key) DO UPDATE SET from_date = excluded.from_date, updated_at = excluded.updated_at`,
		r.key, st.FromDate, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("error saving poll state: %w", err)
	}
	st.UpdatedAt = now
	return nil
}
