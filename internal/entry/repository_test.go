package entry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/mhub-bridge/internal/infrastructure/database"
	"github.com/nerrad567/mhub-bridge/migrations"
)

// setupTestRepo creates an in-memory database with the embedded schema.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenMemory(ctx)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	e := &Entry{ID: "entry-1", Title: "MHUB U 4x3+1", Host: "192.168.1.50"}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !e.CreatedAt.Equal(fixed) || !e.UpdatedAt.Equal(fixed) {
		t.Errorf("timestamps = %v/%v, want %v", e.CreatedAt, e.UpdatedAt, fixed)
	}

	got, err := repo.GetByID(ctx, "entry-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != e.Title || got.Host != e.Host {
		t.Errorf("GetByID() = %+v, want %+v", got, e)
	}
	if !got.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, fixed)
	}

	byHost, err := repo.GetByHost(ctx, "192.168.1.50")
	if err != nil {
		t.Fatalf("GetByHost() error = %v", err)
	}
	if byHost.ID != "entry-1" {
		t.Errorf("GetByHost().ID = %q", byHost.ID)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByHost(ctx, "10.0.0.1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByHost() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_DuplicateHost(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &Entry{ID: "a", Title: "one", Host: "mhub.local"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(ctx, &Entry{ID: "b", Title: "two", Host: "mhub.local"})
	if !errors.Is(err, ErrAlreadyConfigured) {
		t.Errorf("Create() duplicate error = %v, want ErrAlreadyConfigured", err)
	}
}

func TestSQLiteRepository_ListAndDelete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	entries, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("List() on empty store = %d entries", len(entries))
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, host := range []string{"10.0.0.2", "10.0.0.1"} {
		e := &Entry{ID: host, Title: host, Host: host, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create(%s) error = %v", host, err)
		}
	}

	entries, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Host != "10.0.0.2" {
		t.Fatalf("List() = %+v, want oldest first", entries)
	}

	if err := repo.Delete(ctx, "10.0.0.2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	entries, _ = repo.List(ctx)
	if len(entries) != 1 || entries[0].Host != "10.0.0.1" {
		t.Errorf("List() after delete = %+v", entries)
	}
}
