// Package localfilter implements the built-in transform provider. It styles
// photos entirely in-process with deterministic filter recipes, so the booth
// keeps working without network access or credentials.
package localfilter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"photomaton/internal/config"
	"photomaton/internal/fileutil"
	"photomaton/internal/logging"
	"photomaton/internal/provider"
)

// ProviderName is the registry name of the built-in provider.
const ProviderName = "localfilter"

type recipe func(img image.Image) image.Image

// Provider styles photos with local filter recipes.
type Provider struct {
	quality int
	recipes map[string]recipe
	logger  *slog.Logger
}

// New builds the local provider from daemon configuration.
func New(cfg *config.Config, logger *slog.Logger) *Provider {
	return &Provider{
		quality: cfg.Storage.JPEGQuality,
		recipes: builtinRecipes(),
		logger:  logging.NewComponentLogger(logger, ProviderName),
	}
}

func (p *Provider) Name() string {
	return ProviderName
}

// Available always succeeds: the local provider has no external dependency.
func (p *Provider) Available(ctx context.Context) error {
	return ctx.Err()
}

func (p *Provider) ValidateConfig() error {
	if p.quality < 1 || p.quality > 100 {
		return fmt.Errorf("jpeg quality %d out of range 1-100", p.quality)
	}
	return nil
}

func (p *Provider) Capabilities() provider.Capabilities {
	presets := make([]string, 0, len(p.recipes))
	for name := range p.recipes {
		presets = append(presets, name)
	}
	sort.Strings(presets)
	return provider.Capabilities{Presets: presets}
}

// RequiredCredentials is empty: local filtering needs no secrets.
func (p *Provider) RequiredCredentials() []string {
	return nil
}

// Transform applies the preset's recipe and writes the styled JPEG to the
// requested output path. Unknown presets are permanent failures; disk errors
// are retryable.
func (p *Provider) Transform(ctx context.Context, req provider.Request) (*provider.Result, error) {
	started := time.Now()

	apply, ok := p.recipes[req.Preset]
	if !ok {
		return nil, provider.NewFailure(ProviderName, "transform",
			fmt.Sprintf("unknown preset %q", req.Preset), false, nil)
	}

	data := req.Data
	if len(data) == 0 {
		fileData, err := os.ReadFile(req.InputPath)
		if err != nil {
			return nil, provider.NewFailure(ProviderName, "transform", "read input", true, err)
		}
		data = fileData
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, provider.NewFailure(ProviderName, "transform", "decode input", false, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, provider.NewFailure(ProviderName, "transform", "canceled", true, err)
	}

	styled := apply(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, styled, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, provider.NewFailure(ProviderName, "transform", "encode output", false, err)
	}
	if err := fileutil.WriteFileAtomic(req.OutputPath, buf.Bytes(), 0o644); err != nil {
		return nil, provider.NewFailure(ProviderName, "transform", "write output", true, err)
	}

	elapsed := time.Since(started)
	p.logger.Info("photo styled",
		logging.String(logging.FieldPhotoID, req.PhotoID),
		logging.String(logging.FieldPreset, req.Preset),
		logging.Duration("elapsed", elapsed))

	return &provider.Result{
		OutputPath: req.OutputPath,
		Provider:   ProviderName,
		Elapsed:    elapsed,
		Metadata:   map[string]string{"preset": req.Preset, "engine": "imaging"},
	}, nil
}

func builtinRecipes() map[string]recipe {
	return map[string]recipe{
		"toon-yellow": func(img image.Image) image.Image {
			out := imaging.AdjustSaturation(img, 35)
			out = imaging.AdjustContrast(out, 25)
			return tint(out, color.NRGBA{R: 255, G: 214, B: 0, A: 48})
		},
		"noir": func(img image.Image) image.Image {
			out := imaging.Grayscale(img)
			out = imaging.AdjustContrast(out, 30)
			return frame(out, color.NRGBA{R: 12, G: 12, B: 12, A: 255}, 0.03)
		},
		"sepia": func(img image.Image) image.Image {
			out := imaging.Grayscale(img)
			out = imaging.AdjustBrightness(out, 5)
			return tint(out, color.NRGBA{R: 112, G: 66, B: 20, A: 70})
		},
		"pop": func(img image.Image) image.Image {
			out := imaging.AdjustSaturation(img, 60)
			out = imaging.AdjustContrast(out, 20)
			out = imaging.AdjustGamma(out, 1.1)
			return frame(out, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, 0.04)
		},
		"dream": func(img image.Image) image.Image {
			soft := imaging.Blur(img, 3.5)
			out := imaging.OverlayCenter(imaging.Clone(img), soft, 0.45)
			return tint(out, color.NRGBA{R: 180, G: 150, B: 255, A: 40})
		},
	}
}

// tint washes the image with a translucent color layer.
func tint(img image.Image, c color.NRGBA) image.Image {
	bounds := img.Bounds()
	dc := gg.NewContextForImage(img)
	dc.SetRGBA255(int(c.R), int(c.G), int(c.B), int(c.A))
	dc.DrawRectangle(0, 0, float64(bounds.Dx()), float64(bounds.Dy()))
	dc.Fill()
	return dc.Image()
}

// frame strokes a border around the image, sized as a fraction of the shorter
// edge.
func frame(img image.Image, c color.NRGBA, fraction float64) image.Image {
	bounds := img.Bounds()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	thickness := fraction * w
	if h < w {
		thickness = fraction * h
	}
	if thickness < 2 {
		thickness = 2
	}
	dc := gg.NewContextForImage(img)
	dc.SetRGBA255(int(c.R), int(c.G), int(c.B), int(c.A))
	dc.SetLineWidth(thickness)
	dc.DrawRectangle(thickness/2, thickness/2, w-thickness, h-thickness)
	dc.Stroke()
	return dc.Image()
}
