package services_test

import (
	"errors"
	"strings"
	"testing"

	"photomaton/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStorage, "storage", "save original", "write failed", base)
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected ErrStorage marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
	if !strings.Contains(err.Error(), "save original") {
		t.Fatalf("expected operation in message, got %q", err.Error())
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrPhotoNotFound, "transform", "enqueue", "unknown photo", nil)
	if !errors.Is(err, services.ErrPhotoNotFound) {
		t.Fatalf("expected ErrPhotoNotFound marker, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", errors.New("oops"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected generic detail, got %q", err.Error())
	}
}

type retryableErr struct{ retry bool }

func (e retryableErr) Error() string     { return "provider failure" }
func (e retryableErr) IsRetryable() bool { return e.retry }

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient marker", services.Wrap(services.ErrTransient, "x", "y", "", nil), true},
		{"timeout marker", services.Wrap(services.ErrTimeout, "x", "y", "", nil), true},
		{"unavailable marker", services.Wrap(services.ErrProviderUnavailable, "registry", "resolve", "", nil), true},
		{"validation marker", services.Wrap(services.ErrValidation, "x", "y", "", nil), false},
		{"flagged retryable", retryableErr{retry: true}, true},
		{"flagged permanent", retryableErr{retry: false}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsRetryable(tc.err); got != tc.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
