// Package history persists finished downloads in SQLite so `vget history`
// can show what landed where.
//
// The database is an archive of terminal outcomes, not in-flight state; rows
// are only ever inserted, listed, and cleared. Schema changes bump the
// version in schema.go; users clear the database to adopt the new schema.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one finished download. Missing identifiers and timestamps
// are filled in.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now().UTC()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = entry.FinishedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (id, batch_id, url, file_path, status, detail, bytes, created_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.BatchID,
		entry.URL,
		nullableString(entry.FilePath),
		string(entry.Status),
		nullableString(entry.Detail),
		nullableInt(entry.Bytes),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		entry.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert download: %w", err)
	}
	return entry, nil
}

// List returns the most recent entries, newest first. A non-positive limit
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, batch_id, url, file_path, status, detail, bytes, created_at, finished_at
              FROM downloads ORDER BY finished_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			filePath   sql.NullString
			detail     sql.NullString
			bytes      sql.NullInt64
			createdAt  string
			finishedAt string
			status     string
		)
		if err := rows.Scan(&entry.ID, &entry.BatchID, &entry.URL, &filePath, &status, &detail, &bytes, &createdAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		entry.FilePath = filePath.String
		entry.Detail = detail.String
		entry.Bytes = bytes.Int64
		entry.Status = Status(status)
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			entry.CreatedAt = ts
		}
		if ts, err := time.Parse(time.RFC3339Nano, finishedAt); err == nil {
			entry.FinishedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate downloads: %w", err)
	}
	return entries, nil
}

// Clear removes every recorded download and reports how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM downloads")
	if err != nil {
		return 0, fmt.Errorf("clear downloads: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
