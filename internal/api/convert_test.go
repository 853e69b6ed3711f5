package api

import (
	"testing"
	"time"

	"photomaton/internal/photo"
	"photomaton/internal/transform"
)

func TestFromPhoto(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	view := FromPhoto(&photo.Photo{
		ID:              "p1",
		OwnerID:         "alice",
		Preset:          "noir",
		Status:          photo.StatusCompleted,
		Provider:        "localfilter",
		TransformedPath: "/photos/p1/styled-noir.jpg",
		ProcessingMS:    845,
		CreatedAt:       created,
	})
	if view.ID != "p1" || view.Status != "completed" || view.Provider != "localfilter" {
		t.Fatalf("unexpected view: %#v", view)
	}
	if !view.HasTransform {
		t.Fatal("expected HasTransform for styled photo")
	}
	if view.CreatedAt != "2026-08-01T12:30:00.000Z" {
		t.Fatalf("unexpected timestamp %q", view.CreatedAt)
	}
	if view.UpdatedAt != "" {
		t.Fatalf("zero time should render empty, got %q", view.UpdatedAt)
	}
}

func TestFromPhotoNil(t *testing.T) {
	if view := FromPhoto(nil); view.ID != "" {
		t.Fatalf("nil photo should produce zero view, got %#v", view)
	}
}

func TestFromJob(t *testing.T) {
	view := FromJob(transform.Job{
		ID:      "j1",
		PhotoID: "p1",
		Preset:  "sepia",
		Status:  transform.JobFailed,
		Error:   "provider unavailable",
		Elapsed: 1500 * time.Millisecond,
	})
	if view.Status != "failed" || view.Error == "" {
		t.Fatalf("unexpected view: %#v", view)
	}
	if view.ElapsedMS != 1500 {
		t.Fatalf("unexpected elapsed %d", view.ElapsedMS)
	}
}
