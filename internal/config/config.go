package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StorageDir string `toml:"storage_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Storage contains upload validation and normalization settings.
type Storage struct {
	MaxUploadMB    int      `toml:"max_upload_mb"`
	AllowedFormats []string `toml:"allowed_formats"`
	ThumbnailSize  int      `toml:"thumbnail_size"`
	JPEGQuality    int      `toml:"jpeg_quality"`
}

// Watermark contains overlay compositing settings.
type Watermark struct {
	Enabled     bool   `toml:"enabled"`
	OverlayPath string `toml:"overlay_path"`
	PaddingX    int    `toml:"padding_x"`
	PaddingY    int    `toml:"padding_y"`
	Position    string `toml:"position"`
}

// Transform contains orchestrator settings.
type Transform struct {
	Provider          string `toml:"provider"`
	ProviderTimeout   int    `toml:"provider_timeout"`
	JobHistoryLimit   int    `toml:"job_history_limit"`
	StuckResetSeconds int    `toml:"stuck_reset_seconds"`
}

// Restyle configures the remote generative transform provider.
type Restyle struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Providers groups per-provider configuration sections.
type Providers struct {
	Restyle Restyle `toml:"restyle"`
}

// Export contains export archiver settings.
type Export struct {
	FilenamePrefix   string `toml:"filename_prefix"`
	IncludeOriginals bool   `toml:"include_originals"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for photomaton.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Storage   Storage   `toml:"storage"`
	Watermark Watermark `toml:"watermark"`
	Transform Transform `toml:"transform"`
	Providers Providers `toml:"providers"`
	Export    Export    `toml:"export"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/photomaton/config.toml")
}

// Load locates and parses a configuration file. An empty path falls back to
// DefaultConfigPath. A missing file yields repository defaults with
// found=false rather than an error; a present but invalid file is an error.
// The returned config has all paths expanded and has passed validation.
func Load(path string) (*Config, string, bool, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		def, err := DefaultConfigPath()
		if err != nil {
			return nil, "", false, err
		}
		resolved = def
	} else {
		expanded, err := expandPath(resolved)
		if err != nil {
			return nil, "", false, err
		}
		resolved = expanded
	}

	cfg := Default()
	found := true
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		found = false
	case err != nil:
		return nil, resolved, false, fmt.Errorf("read config %s: %w", resolved, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, true, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolved, found, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, found, err
	}
	return &cfg, resolved, found, nil
}

// WriteSample writes the embedded sample configuration to path, creating
// parent directories. It refuses to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the data, storage, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StorageDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// MaxUploadBytes returns the configured upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Storage.MaxUploadMB) << 20
}

// ProviderTimeout returns the per-transform provider deadline.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Transform.ProviderTimeout) * time.Second
}

// StuckWindow returns the staleness window after which a processing photo
// may be reset and retransformed.
func (c *Config) StuckWindow() time.Duration {
	return time.Duration(c.Transform.StuckResetSeconds) * time.Second
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Watermark.OverlayPath, err = expandPath(c.Watermark.OverlayPath); err != nil {
		return err
	}
	c.Watermark.Position = strings.ToLower(strings.TrimSpace(c.Watermark.Position))
	c.Transform.Provider = strings.ToLower(strings.TrimSpace(c.Transform.Provider))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	for i, format := range c.Storage.AllowedFormats {
		c.Storage.AllowedFormats[i] = strings.ToLower(strings.TrimSpace(format))
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
