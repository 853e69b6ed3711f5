package main

import (
	"fmt"
	"log/slog"

	"photomaton/internal/config"
	"photomaton/internal/daemon"
	"photomaton/internal/export"
	"photomaton/internal/photo"
	"photomaton/internal/preset"
	"photomaton/internal/provider"
	"photomaton/internal/provider/localfilter"
	"photomaton/internal/provider/restyle"
	"photomaton/internal/storage"
	"photomaton/internal/transform"
	"photomaton/internal/watermark"
)

// bootstrap builds the full service graph from configuration.
func bootstrap(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	photos, err := photo.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open photo store: %w", err)
	}
	presets, err := preset.Open(cfg)
	if err != nil {
		photos.Close()
		return nil, fmt.Errorf("open preset store: %w", err)
	}
	files, err := storage.NewManager(cfg, logger)
	if err != nil {
		presets.Close()
		photos.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		presets.Close()
		photos.Close()
		return nil, err
	}

	wm := watermark.NewEngine(cfg, logger)
	orchestrator := transform.New(cfg, photos, files, registry, wm, logger)
	archiver := export.NewArchiver(photos, files, logger)

	return daemon.New(cfg, logger, photos, presets, files, registry, orchestrator, archiver)
}

// buildRegistry registers every enabled provider and selects the configured
// default.
func buildRegistry(cfg *config.Config, logger *slog.Logger) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	if err := registry.Register(localfilter.New(cfg, logger)); err != nil {
		return nil, err
	}
	if cfg.Providers.Restyle.Enabled {
		if err := registry.Register(restyle.New(cfg, logger)); err != nil {
			return nil, err
		}
	}
	if err := registry.SetCurrent(cfg.Transform.Provider); err != nil {
		return nil, fmt.Errorf("select provider %q: %w", cfg.Transform.Provider, err)
	}
	return registry, nil
}
