package homework

import (
	"context"
	"time"
)

// State is what survives between poll cycles: the lower bound of the next query window.
type State struct {
	FromDate  int64 // Unix seconds, sent as from_date
	UpdatedAt time.Time
}

// Repository persists the poll State.
type Repository interface {
	// Load returns the saved state or a not-found error when nothing was saved yet.
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}
