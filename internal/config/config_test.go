package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photomaton/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Transform.Provider != "localfilter" {
		t.Fatalf("unexpected default provider %q", cfg.Transform.Provider)
	}
	if cfg.MaxUploadBytes() != 25<<20 {
		t.Fatalf("unexpected max upload bytes %d", cfg.MaxUploadBytes())
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if found {
		t.Fatal("expected found=false for missing file")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Storage.ThumbnailSize != 512 {
		t.Fatalf("expected defaults, got thumbnail size %d", cfg.Storage.ThumbnailSize)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
storage_dir = "` + filepath.Join(dir, "photos") + `"
data_dir = "` + dir + `"

[watermark]
enabled = true
overlay_path = "` + filepath.Join(dir, "overlay.png") + `"
position = "TOP-LEFT"

[transform]
provider = "Restyle"
stuck_reset_seconds = 45
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if cfg.Watermark.Position != "top-left" {
		t.Fatalf("expected normalized position, got %q", cfg.Watermark.Position)
	}
	if cfg.Transform.Provider != "restyle" {
		t.Fatalf("expected normalized provider, got %q", cfg.Transform.Provider)
	}
	if cfg.StuckWindow().Seconds() != 45 {
		t.Fatalf("unexpected stuck window %v", cfg.StuckWindow())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad position", func(c *config.Config) { c.Watermark.Position = "center" }, "watermark.position"},
		{"bad quality", func(c *config.Config) { c.Storage.JPEGQuality = 0 }, "jpeg_quality"},
		{"bad format", func(c *config.Config) { c.Storage.AllowedFormats = []string{"gif"} }, "unsupported format"},
		{"no provider", func(c *config.Config) { c.Transform.Provider = "" }, "transform.provider"},
		{"restyle without url", func(c *config.Config) { c.Providers.Restyle.Enabled = true }, "restyle.base_url"},
		{"watermark without overlay", func(c *config.Config) { c.Watermark.Enabled = true }, "overlay_path"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "logfmt" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	cfg, _, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !found || cfg == nil {
		t.Fatal("expected sample config to be found")
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}
