package database

import (
	"context"
	"sync"
	"time"

	"homework_status_bot/internal/domain/homework"
)

// MemoryStateRepository keeps the poll state for the lifetime of the process only.
type MemoryStateRepository struct {
	mu    sync.Mutex
	state *homework.State
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{}
}

func (r *MemoryStateRepository) Load(_ context.Context) (*homework.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil, ErrStateNotFound
	}
	st := *r.state
	return &st, nil
}

func (r *MemoryStateRepository) Save(_ context.Context, st *homework.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st.UpdatedAt = time.Now()
	saved := *st
	r.state = &saved
	return nil
}
