// Package registry maps platform keys to publisher adapters.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pressline/pressline/pkg/publisher"
)

// ErrUnknownPlatform is wrapped into resolution failures for unregistered keys.
var ErrUnknownPlatform = fmt.Errorf("unknown platform")

// IsUnknownPlatform reports whether err came from resolving an unregistered
// platform key.
func IsUnknownPlatform(err error) bool {
	return errors.Is(err, ErrUnknownPlatform)
}

// Registry holds the closed set of adapter variants, keyed by platform.
// Registration happens at startup; resolution afterwards is read-only, so no
// locking is needed.
type Registry struct {
	logger   *slog.Logger
	adapters map[string]publisher.Adapter
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		adapters: make(map[string]publisher.Adapter),
	}
}

// Register adds an adapter under its platform key, replacing any previous
// registration for the same key.
func (r *Registry) Register(adapter publisher.Adapter) {
	r.adapters[adapter.ID()] = adapter
	r.logger.Info("Registered publisher adapter", "platform", adapter.ID())
}

// Resolve returns the adapter for a platform key.
func (r *Registry) Resolve(platform string) (publisher.Adapter, error) {
	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("platform '%s' not registered: %w", platform, ErrUnknownPlatform)
	}

	return adapter, nil
}

// Platforms lists the registered platform keys, sorted for stable output.
func (r *Registry) Platforms() []string {
	platforms := make([]string, 0, len(r.adapters))
	for platform := range r.adapters {
		platforms = append(platforms, platform)
	}

	sort.Strings(platforms)

	return platforms
}

// HealthCheck reports the registry state for the health endpoint.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.adapters) == 0 {
		return "No publisher adapters registered", false
	}

	return fmt.Sprintf("%d publisher adapters registered", len(r.adapters)), true
}
