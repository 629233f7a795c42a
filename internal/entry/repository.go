package entry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Repository defines persistence for config entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id string) (*Entry, error)
	GetByHost(ctx context.Context, host string) (*Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a SQLite-backed entry repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const entryColumns = `id, title, host, created_at, updated_at`

// Create inserts e, filling in missing timestamps. A second entry for the
// same host returns ErrAlreadyConfigured.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	now := r.now().UTC().Truncate(time.Second)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}

	const query = `INSERT INTO config_entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Title, e.Host, formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting entry for %s: %w", e.Host, ErrAlreadyConfigured)
		}
		return fmt.Errorf("inserting entry %s: %w", e.ID, err)
	}
	return nil
}

// GetByID returns the entry with the given id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Entry, error) {
	const query = `SELECT ` + entryColumns + ` FROM config_entries WHERE id = ?`
	return scanEntry(r.db.QueryRowContext(ctx, query, id))
}

// GetByHost returns the entry configured for host.
func (r *SQLiteRepository) GetByHost(ctx context.Context, host string) (*Entry, error) {
	const query = `SELECT ` + entryColumns + ` FROM config_entries WHERE host = ?`
	return scanEntry(r.db.QueryRowContext(ctx, query, host))
}

// List returns all entries, oldest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Entry, error) {
	const query = `SELECT ` + entryColumns + ` FROM config_entries ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entry rows: %w", err)
	}
	return entries, nil
}

// Delete removes the entry with the given id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM config_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting entry %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var createdAt, updatedAt string
	if err := row.Scan(&e.ID, &e.Title, &e.Host, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
