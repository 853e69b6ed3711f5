// Package photo defines the photo record model and its SQLite-backed store.
package photo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"photomaton/internal/config"
)

// DatabaseFile is the SQLite file name under the configured data directory.
const DatabaseFile = "photomaton.db"

const schema = `
CREATE TABLE IF NOT EXISTS photos (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    preset TEXT NOT NULL DEFAULT '',
    original_path TEXT NOT NULL DEFAULT '',
    thumbnail_path TEXT NOT NULL DEFAULT '',
    transformed_path TEXT NOT NULL DEFAULT '',
    provider TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    error_message TEXT NOT NULL DEFAULT '',
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    format TEXT NOT NULL DEFAULT '',
    size_bytes INTEGER NOT NULL DEFAULT 0,
    processing_ms INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_photos_owner ON photos(owner_id);
CREATE INDEX IF NOT EXISTS idx_photos_status ON photos(status);
`

const photoColumns = `id, owner_id, preset, original_path, thumbnail_path, transformed_path,
    provider, status, error_message, width, height, format, size_bytes, processing_ms,
    created_at, updated_at`

// Store manages photo persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the photo database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, DatabaseFile)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new photo record, assigning an ID and timestamps when absent.
func (s *Store) Create(ctx context.Context, p *Photo) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO photos (`+photoColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.OwnerID, p.Preset, p.OriginalPath, p.ThumbnailPath, p.TransformedPath,
		p.Provider, string(p.Status), p.ErrorMessage, p.Width, p.Height, p.Format,
		p.SizeBytes, p.ProcessingMS,
		p.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

// GetByID fetches a photo by identifier. A missing photo yields (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Photo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return p, nil
}

// Update persists the full photo row and bumps its updated timestamp.
func (s *Store) Update(ctx context.Context, p *Photo) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE photos SET owner_id = ?, preset = ?, original_path = ?, thumbnail_path = ?,
            transformed_path = ?, provider = ?, status = ?, error_message = ?,
            width = ?, height = ?, format = ?, size_bytes = ?, processing_ms = ?, updated_at = ?
        WHERE id = ?`,
		p.OwnerID, p.Preset, p.OriginalPath, p.ThumbnailPath,
		p.TransformedPath, p.Provider, string(p.Status), p.ErrorMessage,
		p.Width, p.Height, p.Format, p.SizeBytes, p.ProcessingMS,
		p.UpdatedAt.Format(time.RFC3339Nano), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update photo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update photo rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update photo: no row with id %s", p.ID)
	}
	return nil
}

// Delete removes a photo record. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

// List returns photos matching the filter, oldest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos`
	var conditions []string
	var args []any

	if filter.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Preset != "" {
		conditions = append(conditions, "preset = ?")
		args = append(args, filter.Preset)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.From.UTC().Format(time.RFC3339Nano))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.To.UTC().Format(time.RFC3339Nano))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []*Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return photos, nil
}

// CountByStatus aggregates photo counts per lifecycle status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM photos GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count photos: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if parsed, ok := ParseStatus(status); ok {
			counts[parsed] = count
		}
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*Photo, error) {
	var p Photo
	var status, createdAt, updatedAt string
	if err := row.Scan(
		&p.ID, &p.OwnerID, &p.Preset, &p.OriginalPath, &p.ThumbnailPath, &p.TransformedPath,
		&p.Provider, &status, &p.ErrorMessage, &p.Width, &p.Height, &p.Format,
		&p.SizeBytes, &p.ProcessingMS, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if parsed, ok := ParseStatus(status); ok {
		p.Status = parsed
	} else {
		p.Status = Status(status)
	}
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return &p, nil
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
