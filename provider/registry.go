package provider

import (
	"fmt"

	"polychat/model"
)

// Registry maps provider types to their adapters. Adding a backend means
// implementing Adapter and registering it; no dispatch code changes.
type Registry struct {
	adapters map[model.ProviderType]Adapter
}

// NewRegistry builds a registry from the given adapters. Later entries for
// the same type override earlier ones.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[model.ProviderType]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Type()] = a
	}
	return r
}

// DefaultRegistry returns a registry holding every built-in adapter.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewOpenAIAdapter(),
		NewAnthropicAdapter(),
		NewGoogleAdapter(),
		NewOllamaAdapter(),
	)
}

// Lookup returns the adapter for a provider type.
func (r *Registry) Lookup(t model.ProviderType) (Adapter, error) {
	a, ok := r.adapters[t]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider: %s", t)
	}
	return a, nil
}

// Types returns the registered provider types in display order.
func (r *Registry) Types() []model.ProviderType {
	var types []model.ProviderType
	for _, t := range model.AllProviders() {
		if _, ok := r.adapters[t]; ok {
			types = append(types, t)
		}
	}
	return types
}
