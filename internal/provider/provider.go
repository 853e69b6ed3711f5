// Package provider defines the pluggable transform backend contract and the
// registry the daemon resolves backends from. Implementations live in
// subpackages; the orchestrator only sees this interface.
package provider

import (
	"context"
	"fmt"
	"time"
)

// Request describes one transform invocation. InputPath is always readable
// when the orchestrator calls Transform; OutputPath names where the styled
// result must land. Data carries the raw input bytes so remote providers can
// upload without re-reading the file.
type Request struct {
	PhotoID    string
	InputPath  string
	OutputPath string
	Preset     string
	Data       []byte
}

// Result reports a successful transform.
type Result struct {
	OutputPath string
	Provider   string
	Elapsed    time.Duration
	Metadata   map[string]string
}

// Capabilities advertises what a provider can do so callers can validate
// requests before dispatching them.
type Capabilities struct {
	Presets      []string
	RemoteAPI    bool
	MaxInputSize int64
}

// Provider is a transform backend. Transform either writes the styled image
// to Request.OutputPath and returns a Result, or returns an error; retryable
// failures should be reported via Failure so the caller can classify them.
type Provider interface {
	Name() string
	Available(ctx context.Context) error
	ValidateConfig() error
	Capabilities() Capabilities
	RequiredCredentials() []string
	Transform(ctx context.Context, req Request) (*Result, error)
}

// Failure is the structured error providers return for transform problems.
// Retryable distinguishes transient conditions (network, rate limits) from
// permanent ones (unknown preset, rejected input).
type Failure struct {
	Provider  string
	Op        string
	Message   string
	Retryable bool
	Err       error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", f.Provider, f.Op, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s: %s", f.Provider, f.Op, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsRetryable satisfies the retry classification hook in services.IsRetryable.
func (f *Failure) IsRetryable() bool {
	return f.Retryable
}

// NewFailure builds a Failure with the given retry classification.
func NewFailure(provider, op, message string, retryable bool, err error) *Failure {
	return &Failure{Provider: provider, Op: op, Message: message, Retryable: retryable, Err: err}
}
