package config

import (
	"fmt"
	"strings"
)

var watermarkPositions = map[string]struct{}{
	"bottom-right": {},
	"bottom-left":  {},
	"top-right":    {},
	"top-left":     {},
}

var decodableFormats = map[string]struct{}{
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		problems = append(problems, "paths.storage_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must be set")
	}

	if c.Storage.MaxUploadMB <= 0 {
		problems = append(problems, "storage.max_upload_mb must be positive")
	}
	if c.Storage.ThumbnailSize <= 0 {
		problems = append(problems, "storage.thumbnail_size must be positive")
	}
	if c.Storage.JPEGQuality < 1 || c.Storage.JPEGQuality > 100 {
		problems = append(problems, "storage.jpeg_quality must be within 1-100")
	}
	if len(c.Storage.AllowedFormats) == 0 {
		problems = append(problems, "storage.allowed_formats must not be empty")
	}
	for _, format := range c.Storage.AllowedFormats {
		if _, ok := decodableFormats[format]; !ok {
			problems = append(problems, fmt.Sprintf("storage.allowed_formats: unsupported format %q", format))
		}
	}

	if _, ok := watermarkPositions[c.Watermark.Position]; !ok {
		problems = append(problems, fmt.Sprintf("watermark.position: unknown value %q", c.Watermark.Position))
	}
	if c.Watermark.PaddingX < 0 || c.Watermark.PaddingY < 0 {
		problems = append(problems, "watermark padding must not be negative")
	}
	if c.Watermark.Enabled && strings.TrimSpace(c.Watermark.OverlayPath) == "" {
		problems = append(problems, "watermark.overlay_path must be set when watermarking is enabled")
	}

	if strings.TrimSpace(c.Transform.Provider) == "" {
		problems = append(problems, "transform.provider must be set")
	}
	if c.Transform.ProviderTimeout <= 0 {
		problems = append(problems, "transform.provider_timeout must be positive")
	}
	if c.Transform.JobHistoryLimit <= 0 {
		problems = append(problems, "transform.job_history_limit must be positive")
	}
	if c.Transform.StuckResetSeconds <= 0 {
		problems = append(problems, "transform.stuck_reset_seconds must be positive")
	}

	if c.Providers.Restyle.Enabled {
		if strings.TrimSpace(c.Providers.Restyle.BaseURL) == "" {
			problems = append(problems, "providers.restyle.base_url must be set when restyle is enabled")
		}
		if c.Providers.Restyle.TimeoutSeconds <= 0 {
			problems = append(problems, "providers.restyle.timeout_seconds must be positive")
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
