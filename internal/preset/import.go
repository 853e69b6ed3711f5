package preset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// exportFile mirrors the JSON export format produced by the preset tooling.
type exportFile struct {
	Presets      []exportPreset `json:"presets"`
	PresetsCount int            `json:"presetsCount"`
	ExportedAt   string         `json:"exportedAt"`
}

type exportPreset struct {
	PresetID    string `json:"preset_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	Icon        string `json:"icon"`
	ImagePath   string `json:"image_path"`
	Enabled     bool   `json:"enabled"`
	OrderIndex  int    `json:"order_index"`
}

// ImportSummary reports the outcome of a catalog import.
type ImportSummary struct {
	Inserted int
	Updated  int
}

// Import reads a preset export document and upserts every entry. Existing
// presets are updated in place; nothing is deleted.
func (s *Store) Import(ctx context.Context, r io.Reader) (ImportSummary, error) {
	var doc exportFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return ImportSummary{}, fmt.Errorf("decode preset export: %w", err)
	}
	if len(doc.Presets) == 0 {
		return ImportSummary{}, fmt.Errorf("preset export contains no presets")
	}

	var summary ImportSummary
	for _, entry := range doc.Presets {
		created, err := s.Upsert(ctx, Preset{
			PresetID:    entry.PresetID,
			Name:        entry.Name,
			Description: entry.Description,
			Prompt:      entry.Prompt,
			Icon:        entry.Icon,
			ImagePath:   entry.ImagePath,
			Enabled:     entry.Enabled,
			OrderIndex:  entry.OrderIndex,
		})
		if err != nil {
			return summary, fmt.Errorf("import preset %s: %w", entry.PresetID, err)
		}
		if created {
			summary.Inserted++
		} else {
			summary.Updated++
		}
	}
	return summary, nil
}

// ImportFile imports a preset export document from disk.
func (s *Store) ImportFile(ctx context.Context, path string) (ImportSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("open preset export: %w", err)
	}
	defer file.Close()
	return s.Import(ctx, file)
}
