package resource

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"

	"mercator-hq/atrium/pkg/panel"
)

// Registry is a thread-safe in-memory set of resources keyed by URI key.
// Replace swaps the whole set at once so readers never observe a partial
// reload.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]Resource
	logger    *slog.Logger
}

// NewRegistry creates a registry holding the given resources.
func NewRegistry(resources ...Resource) (*Registry, error) {
	r := &Registry{
		resources: make(map[string]Resource),
		logger:    slog.Default().With("component", "resource.registry"),
	}
	if err := r.Replace(resources); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a resource. Registering an existing key is an error.
func (r *Registry) Register(res Resource) error {
	if err := validateResource(res); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := res.URIKey()
	if _, exists := r.resources[key]; exists {
		return panel.NewConfigurationError("registry", "resource %q already registered", key)
	}
	r.resources[key] = res

	return nil
}

// Replace swaps the registered resources for the given list. The
// registry is left untouched when the list is invalid.
func (r *Registry) Replace(resources []Resource) error {
	next := make(map[string]Resource, len(resources))
	for _, res := range resources {
		if err := validateResource(res); err != nil {
			return err
		}
		key := res.URIKey()
		if _, exists := next[key]; exists {
			return panel.NewConfigurationError("registry", "duplicate resource key %q", key)
		}
		next[key] = res
	}

	r.mu.Lock()
	r.resources = next
	r.mu.Unlock()

	r.logger.Debug("resources replaced", "count", len(next))
	return nil
}

// Lookup returns the resource registered under key. A miss is a
// ConfigurationError that suggests the closest registered key.
func (r *Registry) Lookup(key string) (Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if res, ok := r.resources[key]; ok {
		return res, nil
	}

	if hint := r.closestKey(key); hint != "" {
		return nil, panel.NewConfigurationError("registry", "resource %q not registered (did you mean %q?)", key, hint)
	}
	return nil, panel.NewConfigurationError("registry", "resource %q not registered", key)
}

// Keys returns the registered keys sorted alphabetically.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.resources))
	for k := range r.resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resources)
}

// closestKey must be called with the lock held.
func (r *Registry) closestKey(key string) string {
	best, bestDist := "", -1
	for k := range r.resources {
		d := levenshtein.ComputeDistance(key, k)
		if bestDist < 0 || d < bestDist || (d == bestDist && k < best) {
			best, bestDist = k, d
		}
	}
	if bestDist < 0 || bestDist > max(2, len(key)/3) {
		return ""
	}
	return best
}

func validateResource(res Resource) error {
	if res == nil {
		return panel.NewConfigurationError("registry", "resource cannot be nil")
	}
	if res.URIKey() == "" {
		return panel.NewConfigurationError("registry", "resource %s has an empty URI key", fmt.Sprintf("%T", res))
	}
	return nil
}
