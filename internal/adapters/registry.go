// Package adapters implements C4: per-platform content normalization, plus
// the registry that routes an incoming URL to the adapter that can parse it.
package adapters

import (
	"fmt"
	"strings"

	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

type registry struct {
	adapters []interfaces.Adapter
	byName   map[string]interfaces.Adapter
}

// NewRegistry builds an empty adapter registry.
func NewRegistry() interfaces.AdapterRegistry {
	return &registry{byName: make(map[string]interfaces.Adapter)}
}

func (r *registry) Register(a interfaces.Adapter) {
	r.adapters = append(r.adapters, a)
	r.byName[strings.ToLower(a.Name())] = a
}

// Resolve picks the first registered adapter whose Supports(url) is true,
// matching registration order so more specific adapters (e.g. bilibili)
// should be registered before the generic fallback.
func (r *registry) Resolve(url string) (interfaces.Adapter, error) {
	for _, a := range r.adapters {
		if a.Supports(url) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("adapters: no adapter supports url %q", url)
}

func (r *registry) ByPlatform(platform string) (interfaces.Adapter, error) {
	a, ok := r.byName[strings.ToLower(platform)]
	if !ok {
		return nil, fmt.Errorf("adapters: no adapter registered for platform %q", platform)
	}
	return a, nil
}
