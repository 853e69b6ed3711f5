package watermark_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"photomaton/internal/logging"
	"photomaton/internal/testsupport"
	"photomaton/internal/watermark"
)

func TestApplyStampsOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := testsupport.WriteOverlayPNG(t, dir, "overlay.png", 40, 40)
	target := testsupport.WriteJPEG(t, dir, "photo.jpg", 400, 300)

	cfg := testsupport.NewConfig(t, testsupport.WithWatermark(overlay, 20, 20, watermark.PositionBottomRight))
	engine := watermark.NewEngine(cfg, logging.NewNop())

	before, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}

	result, err := engine.Apply(target)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !result.Applied {
		t.Fatalf("expected overlay to apply, got reason %q", result.Reason)
	}

	after, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read watermarked target: %v", err)
	}
	if bytes.Equal(before, after) {
		t.Fatal("watermarked file should differ from original")
	}
}

func TestApplySkipsWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	target := testsupport.WriteJPEG(t, dir, "photo.jpg", 200, 200)

	cfg := testsupport.NewConfig(t)
	engine := watermark.NewEngine(cfg, logging.NewNop())

	before, _ := os.ReadFile(target)
	result, err := engine.Apply(target)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Applied || result.Reason != watermark.ReasonDisabled {
		t.Fatalf("expected disabled skip, got %#v", result)
	}
	after, _ := os.ReadFile(target)
	if !bytes.Equal(before, after) {
		t.Fatal("skipped apply must leave the file untouched")
	}
}

func TestApplySkipsWhenOverlayMissing(t *testing.T) {
	dir := t.TempDir()
	target := testsupport.WriteJPEG(t, dir, "photo.jpg", 200, 200)

	cfg := testsupport.NewConfig(t, testsupport.WithWatermark(
		filepath.Join(dir, "missing.png"), 10, 10, watermark.PositionBottomRight))
	engine := watermark.NewEngine(cfg, logging.NewNop())

	result, err := engine.Apply(target)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Applied {
		t.Fatal("missing overlay must not apply")
	}
}

func TestApplySkipsWhenOverlayTooLarge(t *testing.T) {
	dir := t.TempDir()
	overlay := testsupport.WriteOverlayPNG(t, dir, "overlay.png", 300, 300)
	target := testsupport.WriteJPEG(t, dir, "photo.jpg", 320, 240)

	cfg := testsupport.NewConfig(t, testsupport.WithWatermark(overlay, 20, 20, watermark.PositionBottomRight))
	engine := watermark.NewEngine(cfg, logging.NewNop())

	result, err := engine.Apply(target)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Applied {
		t.Fatal("oversized overlay must not apply")
	}
	if result.Reason == "" {
		t.Fatal("skip must carry a reason")
	}
}

func TestApplyAllPositions(t *testing.T) {
	dir := t.TempDir()
	overlay := testsupport.WriteOverlayPNG(t, dir, "overlay.png", 30, 30)

	positions := []string{
		watermark.PositionBottomRight,
		watermark.PositionBottomLeft,
		watermark.PositionTopRight,
		watermark.PositionTopLeft,
	}
	for _, pos := range positions {
		t.Run(pos, func(t *testing.T) {
			target := testsupport.WriteJPEG(t, dir, "photo-"+pos+".jpg", 300, 200)
			cfg := testsupport.NewConfig(t, testsupport.WithWatermark(overlay, 15, 15, pos))
			engine := watermark.NewEngine(cfg, logging.NewNop())

			result, err := engine.Apply(target)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if !result.Applied {
				t.Fatalf("expected apply at %s, got reason %q", pos, result.Reason)
			}
		})
	}
}

func TestUpdateConfigInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	overlay := testsupport.WriteOverlayPNG(t, dir, "overlay.png", 30, 30)
	target := testsupport.WriteJPEG(t, dir, "photo.jpg", 300, 200)

	cfg := testsupport.NewConfig(t, testsupport.WithWatermark(overlay, 10, 10, watermark.PositionBottomRight))
	engine := watermark.NewEngine(cfg, logging.NewNop())

	if result, err := engine.Apply(target); err != nil || !result.Applied {
		t.Fatalf("initial apply failed: %v %#v", err, result)
	}

	// Disable via UpdateConfig; the next apply must skip even though an
	// overlay was cached.
	engine.UpdateConfig(watermark.Config{Enabled: false})
	result, err := engine.Apply(target)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Applied {
		t.Fatal("updated config should disable watermarking")
	}
}

func TestApplyUnreadableTargetErrors(t *testing.T) {
	dir := t.TempDir()
	overlay := testsupport.WriteOverlayPNG(t, dir, "overlay.png", 30, 30)

	cfg := testsupport.NewConfig(t, testsupport.WithWatermark(overlay, 10, 10, watermark.PositionBottomRight))
	engine := watermark.NewEngine(cfg, logging.NewNop())

	if _, err := engine.Apply(filepath.Join(dir, "absent.jpg")); err == nil {
		t.Fatal("expected error for unreadable target")
	}
}
