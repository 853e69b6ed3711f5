package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// TestImage builds an in-memory RGBA image with a simple two-tone pattern so
// transformed output is visually distinguishable from the input.
func TestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{R: 40, G: 90, B: 200, A: 255}
			if (x/16+y/16)%2 == 0 {
				c = color.NRGBA{R: 230, G: 230, B: 230, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// JPEGBytes encodes a generated test image as JPEG.
func JPEGBytes(t testing.TB, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, TestImage(width, height), imaging.JPEG, imaging.JPEGQuality(92)); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

// PNGBytes encodes a generated test image as PNG.
func PNGBytes(t testing.TB, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, TestImage(width, height), imaging.PNG); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

// WriteJPEG writes a generated JPEG under dir and returns its path.
func WriteJPEG(t testing.TB, dir, name string, width, height int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, JPEGBytes(t, width, height), 0o644); err != nil {
		t.Fatalf("write test jpeg: %v", err)
	}
	return path
}

// WriteOverlayPNG writes a small opaque overlay PNG suitable for watermark
// tests and returns its path.
func WriteOverlayPNG(t testing.TB, dir, name string, width, height int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode overlay png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write overlay png: %v", err)
	}
	return path
}
