package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"homework_status_bot/internal/domain/homework"
)

// exerciseRepository runs the shared Load/Save contract against any repository.
func exerciseRepository(t *testing.T, repo homework.Repository) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.Load(ctx); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound on empty repository, got %v", err)
	}

	st := &homework.State{FromDate: 1700000000}
	if err := repo.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if st.UpdatedAt.IsZero() {
		t.Error("Save should stamp UpdatedAt")
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.FromDate != 1700000000 {
		t.Errorf("FromDate = %d", got.FromDate)
	}

	// overwrite
	if err := repo.Save(ctx, &homework.State{FromDate: 1700000600}); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.FromDate != 1700000600 {
		t.Errorf("FromDate after overwrite = %d", got.FromDate)
	}
}

func TestMemoryStateRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryStateRepository())
}

// TestMemoryStateRepository_ReturnsCopies verifies callers cannot mutate stored state.
func TestMemoryStateRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryStateRepository()
	st := &homework.State{FromDate: 1}
	_ = repo.Save(context.Background(), st)
	st.FromDate = 99

	got, _ := repo.Load(context.Background())
	got.FromDate = 42

	again, _ := repo.Load(context.Background())
	if again.FromDate != 1 {
		t.Errorf("stored state was mutated: %d", again.FromDate)
	}
}

func TestSQLiteStateRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "bot.db")
	db, err := NewSQLiteConnection(path)
	if err != nil {
		t.Fatalf("NewSQLiteConnection: %v", err)
	}
	defer db.Close()

	repo, err := NewSQLiteStateRepository(context.Background(), db, "42")
	if err != nil {
		t.Fatalf("NewSQLiteStateRepository: %v", err)
	}
	exerciseRepository(t, repo)
}

// TestSQLiteStateRepository_SurvivesReopen verifies the window persists across restarts
// and that keys are isolated.
func TestSQLiteStateRepository_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")

	db, err := NewSQLiteConnection(path)
	if err != nil {
		t.Fatal(err)
	}
	repo, err := NewSQLiteStateRepository(ctx, db, "chat-a")
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, &homework.State{FromDate: 123}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = NewSQLiteConnection(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	reopened, err := NewSQLiteStateRepository(ctx, db, "chat-a")
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if got.FromDate != 123 {
		t.Errorf("FromDate = %d, want 123", got.FromDate)
	}

	other, _ := NewSQLiteStateRepository(ctx, db, "chat-b")
	if _, err := other.Load(ctx); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("expected other key to be empty, got %v", err)
	}
}

// TestPostgresStateRepository runs only when TEST_DATABASE_URL points at a disposable database.
func TestPostgresStateRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := NewPostgresConnection(dsn)
	if err != nil {
		t.Fatalf("NewPostgresConnection: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	key := "test-" + t.Name()
	repo, err := NewPostgresStateRepository(ctx, db, key)
	if err != nil {
		t.Fatalf("NewPostgresStateRepository: %v", err)
	}
	_, _ = db.ExecContext(ctx, `DELETE FROM poll_state WHERE state_key = $1`, key)
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM poll_state WHERE state_key = $1`, key)
	})

	exerciseRepository(t, repo)
}
