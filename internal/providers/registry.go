package providers

import (
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

// Registry holds one adapter per supported PSP. Explicitly constructed and
// injected; nothing here is a process-wide singleton.
type Registry struct {
	adapters map[enums.Provider]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	reg := &Registry{adapters: make(map[enums.Provider]Adapter, len(adapters))}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		reg.adapters[adapter.Provider()] = adapter
	}
	return reg
}

// Adapter resolves the adapter for a provider.
func (r *Registry) Adapter(provider enums.Provider) (Adapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeProviderDisabled, "no adapter registered for provider "+provider.String())
	}
	return adapter, nil
}

// Providers lists every registered provider.
func (r *Registry) Providers() []enums.Provider {
	out := make([]enums.Provider, 0, len(r.adapters))
	for provider := range r.adapters {
		out = append(out, provider)
	}
	return out
}
