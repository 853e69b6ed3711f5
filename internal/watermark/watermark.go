// Package watermark stamps an overlay image onto styled photos in place.
// Watermarking is best-effort: a missing or oversized overlay downgrades to a
// skip with a reason, never to a failed transform.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/disintegration/imaging"

	"photomaton/internal/config"
	"photomaton/internal/fileutil"
	"photomaton/internal/logging"
)

// Positions accepted for overlay placement.
const (
	PositionBottomRight = "bottom-right"
	PositionBottomLeft  = "bottom-left"
	PositionTopRight    = "top-right"
	PositionTopLeft     = "top-left"
)

// Config controls overlay placement.
type Config struct {
	Enabled     bool
	OverlayPath string
	PaddingX    int
	PaddingY    int
	Position    string
}

// ReasonDisabled is the skip reason reported when watermarking is turned
// off; callers can distinguish it from genuine skips worth logging.
const ReasonDisabled = "watermarking disabled"

// Result reports whether the overlay was applied and, if not, why.
type Result struct {
	Applied bool
	Reason  string
}

// Engine applies the configured overlay. The decoded overlay is cached until
// the configuration changes.
type Engine struct {
	mu      sync.RWMutex
	cfg     Config
	overlay image.Image
	logger  *slog.Logger
}

// NewEngine builds a watermark engine from daemon configuration.
func NewEngine(cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		cfg: Config{
			Enabled:     cfg.Watermark.Enabled,
			OverlayPath: cfg.Watermark.OverlayPath,
			PaddingX:    cfg.Watermark.PaddingX,
			PaddingY:    cfg.Watermark.PaddingY,
			Position:    cfg.Watermark.Position,
		},
		logger: logging.NewComponentLogger(logger, "watermark"),
	}
}

// UpdateConfig swaps the engine configuration and drops the cached overlay.
func (e *Engine) UpdateConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.overlay = nil
}

// Apply stamps the overlay onto the image at path, replacing the file
// atomically. It never returns an error for overlay problems; the Result
// explains any skip. Only unreadable target files surface as errors.
func (e *Engine) Apply(path string) (Result, error) {
	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	if !cfg.Enabled {
		return Result{Reason: ReasonDisabled}, nil
	}

	overlay, err := e.loadOverlay(cfg.OverlayPath)
	if err != nil {
		e.logger.Warn("overlay unavailable, skipping watermark",
			logging.String("overlay_path", cfg.OverlayPath),
			logging.Error(err))
		return Result{Reason: fmt.Sprintf("overlay unavailable: %v", err)}, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open target image: %w", err)
	}

	imgBounds := img.Bounds()
	ovBounds := overlay.Bounds()
	if ovBounds.Dx()+2*cfg.PaddingX > imgBounds.Dx() || ovBounds.Dy()+2*cfg.PaddingY > imgBounds.Dy() {
		return Result{Reason: "overlay larger than padded target"}, nil
	}

	pos := placement(cfg, imgBounds, ovBounds)
	stamped := imaging.Overlay(img, overlay, pos, 1.0)

	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		format = imaging.JPEG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, stamped, format); err != nil {
		return Result{}, fmt.Errorf("encode watermarked image: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return Result{}, fmt.Errorf("replace watermarked image: %w", err)
	}
	return Result{Applied: true}, nil
}

func (e *Engine) loadOverlay(path string) (image.Image, error) {
	e.mu.RLock()
	cached := e.overlay
	e.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	if path == "" {
		return nil, fmt.Errorf("no overlay path configured")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	overlay, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.overlay = overlay
	e.mu.Unlock()
	return overlay, nil
}

// placement computes the overlay's top-left point for the configured corner,
// clamped so the overlay never starts outside the image.
func placement(cfg Config, img, overlay image.Rectangle) image.Point {
	x, y := cfg.PaddingX, cfg.PaddingY
	switch cfg.Position {
	case PositionTopLeft:
	case PositionTopRight:
		x = img.Dx() - overlay.Dx() - cfg.PaddingX
	case PositionBottomLeft:
		y = img.Dy() - overlay.Dy() - cfg.PaddingY
	default: // bottom-right
		x = img.Dx() - overlay.Dx() - cfg.PaddingX
		y = img.Dy() - overlay.Dy() - cfg.PaddingY
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return image.Pt(x, y)
}
