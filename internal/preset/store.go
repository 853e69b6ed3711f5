// Package preset manages the stylistic preset catalog persisted alongside
// photo records.
package preset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"photomaton/internal/config"
	"photomaton/internal/photo"
)

const schema = `
CREATE TABLE IF NOT EXISTS preset_prompts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    preset_id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    prompt TEXT NOT NULL DEFAULT '',
    icon TEXT NOT NULL DEFAULT '',
    image_path TEXT NOT NULL DEFAULT '',
    enabled INTEGER NOT NULL DEFAULT 1,
    order_index INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL
);
`

// Preset is a named stylistic transformation recipe.
type Preset struct {
	PresetID    string
	Name        string
	Description string
	Prompt      string
	Icon        string
	ImagePath   string
	Enabled     bool
	OrderIndex  int
	UpdatedAt   time.Time
}

// Store manages preset persistence backed by SQLite. It shares the photo
// database file so the catalog travels with the photo records.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the preset catalog.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, photo.DatabaseFile)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
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

// Upsert inserts a preset or updates an existing one matched by preset_id.
// It reports whether a new row was created.
func (s *Store) Upsert(ctx context.Context, p Preset) (bool, error) {
	id := strings.TrimSpace(p.PresetID)
	if id == "" {
		return false, errors.New("preset id must not be empty")
	}
	now := time.Now().UTC().Format(time.RFC3339)

	existing, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if existing != nil {
		_, err := s.db.ExecContext(ctx,
			`UPDATE preset_prompts SET name = ?, description = ?, prompt = ?, icon = ?,
                image_path = ?, enabled = ?, order_index = ?, updated_at = ?
            WHERE preset_id = ?`,
			p.Name, p.Description, p.Prompt, p.Icon,
			p.ImagePath, boolToInt(p.Enabled), p.OrderIndex, now, id,
		)
		if err != nil {
			return false, fmt.Errorf("update preset %s: %w", id, err)
		}
		return false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO preset_prompts (preset_id, name, description, prompt, icon, image_path, enabled, order_index, updated_at)
        VALUES (?,?,?,?,?,?,?,?,?)`,
		id, p.Name, p.Description, p.Prompt, p.Icon, p.ImagePath,
		boolToInt(p.Enabled), p.OrderIndex, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert preset %s: %w", id, err)
	}
	return true, nil
}

// Get fetches a preset by its identifier. A missing preset yields (nil, nil).
func (s *Store) Get(ctx context.Context, presetID string) (*Preset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT preset_id, name, description, prompt, icon, image_path, enabled, order_index, updated_at
        FROM preset_prompts WHERE preset_id = ?`, presetID)
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preset: %w", err)
	}
	return p, nil
}

// List returns presets ordered by order_index. With enabledOnly, disabled
// presets are omitted.
func (s *Store) List(ctx context.Context, enabledOnly bool) ([]Preset, error) {
	query := `SELECT preset_id, name, description, prompt, icon, image_path, enabled, order_index, updated_at
        FROM preset_prompts`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY order_index ASC, preset_id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		presets = append(presets, *p)
	}
	return presets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreset(row rowScanner) (*Preset, error) {
	var p Preset
	var enabled int
	var updatedAt string
	if err := row.Scan(&p.PresetID, &p.Name, &p.Description, &p.Prompt, &p.Icon,
		&p.ImagePath, &enabled, &p.OrderIndex, &updatedAt); err != nil {
		return nil, err
	}
	p.Enabled = enabled != 0
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		p.UpdatedAt = ts
	}
	return &p, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
