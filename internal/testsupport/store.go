package testsupport

import (
	"testing"

	"photomaton/internal/config"
	"photomaton/internal/photo"
	"photomaton/internal/preset"
)

// MustOpenPhotoStore opens a photo store against the test config and closes
// it on cleanup.
func MustOpenPhotoStore(t testing.TB, cfg *config.Config) *photo.Store {
	t.Helper()
	store, err := photo.Open(cfg)
	if err != nil {
		t.Fatalf("open photo store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close photo store: %v", err)
		}
	})
	return store
}

// MustOpenPresetStore opens a preset store against the test config and closes
// it on cleanup.
func MustOpenPresetStore(t testing.TB, cfg *config.Config) *preset.Store {
	t.Helper()
	store, err := preset.Open(cfg)
	if err != nil {
		t.Fatalf("open preset store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close preset store: %v", err)
		}
	})
	return store
}
