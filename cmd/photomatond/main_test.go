package main

import (
	"testing"

	"photomaton/internal/logging"
	"photomaton/internal/provider/localfilter"
	"photomaton/internal/testsupport"
)

func TestBuildRegistryDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	registry, err := buildRegistry(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildRegistry failed: %v", err)
	}
	if registry.Current() != localfilter.ProviderName {
		t.Fatalf("expected localfilter as default, got %q", registry.Current())
	}
	if len(registry.Names()) != 1 {
		t.Fatalf("restyle should stay unregistered when disabled: %v", registry.Names())
	}
}

func TestBuildRegistryWithRestyle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Providers.Restyle.Enabled = true
	cfg.Providers.Restyle.BaseURL = "https://restyle.example.com"
	cfg.Providers.Restyle.APIKey = "key"
	cfg.Transform.Provider = "restyle"

	registry, err := buildRegistry(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildRegistry failed: %v", err)
	}
	if registry.Current() != "restyle" {
		t.Fatalf("expected restyle as default, got %q", registry.Current())
	}
	if len(registry.Names()) != 2 {
		t.Fatalf("expected both providers, got %v", registry.Names())
	}
}

func TestBuildRegistryUnknownProvider(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transform.Provider = "does-not-exist"

	if _, err := buildRegistry(cfg, logging.NewNop()); err == nil {
		t.Fatal("expected error for unknown configured provider")
	}
}

func TestBootstrap(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	d, err := bootstrap(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	defer d.Close()
}
