package localfilter_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"photomaton/internal/logging"
	"photomaton/internal/provider"
	"photomaton/internal/provider/localfilter"
	"photomaton/internal/services"
	"photomaton/internal/testsupport"
)

func newProvider(t *testing.T) *localfilter.Provider {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return localfilter.New(cfg, logging.NewNop())
}

func TestTransformWritesStyledOutput(t *testing.T) {
	p := newProvider(t)
	dir := t.TempDir()
	input := testsupport.WriteJPEG(t, dir, "original.jpg", 320, 240)
	output := filepath.Join(dir, "styled-noir.jpg")

	result, err := p.Transform(context.Background(), provider.Request{
		PhotoID:    "p1",
		InputPath:  input,
		OutputPath: output,
		Preset:     "noir",
	})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if result.Provider != localfilter.ProviderName {
		t.Fatalf("unexpected provider %q", result.Provider)
	}
	if result.Elapsed <= 0 {
		t.Fatal("expected measured elapsed time")
	}

	styled, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read styled output: %v", err)
	}
	original, err := os.ReadFile(input)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	if len(styled) == 0 || bytes.Equal(styled, original) {
		t.Fatal("styled output should differ from input")
	}
}

func TestTransformAcceptsInlineData(t *testing.T) {
	p := newProvider(t)
	output := filepath.Join(t.TempDir(), "styled-pop.jpg")

	_, err := p.Transform(context.Background(), provider.Request{
		PhotoID:    "p1",
		OutputPath: output,
		Preset:     "pop",
		Data:       testsupport.JPEGBytes(t, 128, 128),
	})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestTransformUnknownPresetIsPermanent(t *testing.T) {
	p := newProvider(t)

	_, err := p.Transform(context.Background(), provider.Request{
		PhotoID: "p1",
		Preset:  "no-such-preset",
		Data:    testsupport.JPEGBytes(t, 64, 64),
	})
	if err == nil {
		t.Fatal("expected failure for unknown preset")
	}
	if services.IsRetryable(err) {
		t.Fatalf("unknown preset should be permanent: %v", err)
	}
	var failure *provider.Failure
	if !errors.As(err, &failure) || failure.Provider != localfilter.ProviderName {
		t.Fatalf("expected provider failure, got %v", err)
	}
}

func TestTransformMissingInputIsRetryable(t *testing.T) {
	p := newProvider(t)

	_, err := p.Transform(context.Background(), provider.Request{
		PhotoID:    "p1",
		InputPath:  filepath.Join(t.TempDir(), "missing.jpg"),
		OutputPath: filepath.Join(t.TempDir(), "out.jpg"),
		Preset:     "noir",
	})
	if err == nil {
		t.Fatal("expected failure for missing input")
	}
	if !services.IsRetryable(err) {
		t.Fatalf("read failures should be retryable: %v", err)
	}
}

func TestCapabilitiesListPresets(t *testing.T) {
	p := newProvider(t)

	caps := p.Capabilities()
	want := map[string]bool{"toon-yellow": true, "noir": true, "sepia": true, "pop": true, "dream": true}
	if len(caps.Presets) != len(want) {
		t.Fatalf("unexpected preset list: %v", caps.Presets)
	}
	for _, preset := range caps.Presets {
		if !want[preset] {
			t.Fatalf("unexpected preset %q", preset)
		}
	}
	if caps.RemoteAPI {
		t.Fatal("local provider must not advertise a remote API")
	}
}

func TestAllRecipesProduceOutput(t *testing.T) {
	p := newProvider(t)
	dir := t.TempDir()
	data := testsupport.JPEGBytes(t, 200, 160)

	for _, preset := range p.Capabilities().Presets {
		output := filepath.Join(dir, "styled-"+preset+".jpg")
		if _, err := p.Transform(context.Background(), provider.Request{
			PhotoID:    "p1",
			OutputPath: output,
			Preset:     preset,
			Data:       data,
		}); err != nil {
			t.Fatalf("Transform(%s) failed: %v", preset, err)
		}
		info, err := os.Stat(output)
		if err != nil || info.Size() == 0 {
			t.Fatalf("preset %s produced no output: %v", preset, err)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	p := newProvider(t)
	if err := p.ValidateConfig(); err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}
	if err := p.Available(context.Background()); err != nil {
		t.Fatalf("Available failed: %v", err)
	}
}
