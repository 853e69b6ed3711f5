// Package testsupport provides shared helpers for package tests: temp-dir
// seeded configs, store constructors, and generated image fixtures.
package testsupport

import (
	"path/filepath"
	"testing"

	"photomaton/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StorageDir = filepath.Join(base, "photos")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWatermark enables watermarking against the given overlay path.
func WithWatermark(overlayPath string, paddingX, paddingY int, position string) ConfigOption {
	return func(c *config.Config) {
		c.Watermark.Enabled = true
		c.Watermark.OverlayPath = overlayPath
		c.Watermark.PaddingX = paddingX
		c.Watermark.PaddingY = paddingY
		c.Watermark.Position = position
	}
}

// WithMaxUploadMB overrides the upload cap on the test config.
func WithMaxUploadMB(mb int) ConfigOption {
	return func(c *config.Config) {
		c.Storage.MaxUploadMB = mb
	}
}
