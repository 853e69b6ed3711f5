package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"photomaton/internal/services"
)

// Registry holds the registered transform providers and tracks which one is
// current. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	current   string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own name. Registering the same name
// twice is a programming error and fails loudly.
func (r *Registry) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return services.Wrap(services.ErrValidation, "provider", "register", "provider must have a name", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return services.Wrap(services.ErrValidation, "provider", "register",
			fmt.Sprintf("provider %q already registered", name), nil)
	}
	r.providers[name] = p
	if r.current == "" {
		r.current = name
	}
	return nil
}

// Resolve returns the provider registered under name, or the current provider
// when name is empty, and confirms it is reachable. Availability failures are
// retryable; the outage may clear before the next attempt.
func (r *Registry) Resolve(ctx context.Context, name string) (Provider, error) {
	r.mu.RLock()
	if name == "" {
		name = r.current
	}
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, services.Wrap(services.ErrProviderNotFound, "provider", "resolve",
			fmt.Sprintf("no provider registered as %q", name), nil)
	}
	if err := p.Available(ctx); err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "provider", "resolve",
			fmt.Sprintf("provider %q unavailable", name), err)
	}
	return p, nil
}

// SetCurrent switches the default provider used when requests don't name one.
func (r *Registry) SetCurrent(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return services.Wrap(services.ErrProviderNotFound, "provider", "set current",
			fmt.Sprintf("no provider registered as %q", name), nil)
	}
	r.current = name
	return nil
}

// Current returns the name of the default provider.
func (r *Registry) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Names lists registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the configuration of every registered provider and the
// availability of the current one. Configuration problems are permanent;
// availability problems are reported but retryable.
func (r *Registry) Validate(ctx context.Context) error {
	r.mu.RLock()
	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	current := r.current
	r.mu.RUnlock()

	for _, p := range providers {
		if err := p.ValidateConfig(); err != nil {
			return services.Wrap(services.ErrProviderConfigInvalid, "provider", "validate",
				fmt.Sprintf("provider %q misconfigured", p.Name()), err)
		}
	}
	if current != "" {
		if _, err := r.Resolve(ctx, current); err != nil {
			return err
		}
	}
	return nil
}
