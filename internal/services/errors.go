package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Components wrap their errors
// with one of these via Wrap so callers can branch with errors.Is without
// depending on concrete error types.
var (
	ErrProviderNotFound      = errors.New("provider not found")
	ErrProviderUnavailable   = errors.New("provider unavailable")
	ErrProviderConfigInvalid = errors.New("provider configuration invalid")
	ErrPhotoNotFound         = errors.New("photo not found")
	ErrFileNotFound          = errors.New("file not found")
	ErrStorage               = errors.New("storage error")
	ErrNoPhotos              = errors.New("no photos match filter")
	ErrValidation            = errors.New("validation error")
	ErrConfiguration         = errors.New("configuration error")
	ErrTimeout               = errors.New("timeout")
	ErrTransient             = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether err represents a failure worth retrying:
// transient markers, timeouts, provider unavailability, or any wrapped error
// that carries its own retryable flag.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrProviderUnavailable) {
		return true
	}
	var flagged interface{ IsRetryable() bool }
	if errors.As(err, &flagged) {
		return flagged.IsRetryable()
	}
	return false
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
