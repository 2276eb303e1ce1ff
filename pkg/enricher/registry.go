package enricher

import (
	"fmt"

	"github.com/fitglue/enricher/pkg/enricher/providers"
)

// Registry is the catalog of enrichment providers for one composition root.
// It is populated once at startup from an explicit provider list; duplicate
// identities indicate a packaging bug and fail construction outright instead
// of silently overwriting.
type Registry struct {
	byID map[providers.ID]providers.Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(ps ...providers.Provider) (*Registry, error) {
	r := &Registry{byID: make(map[providers.ID]providers.Provider, len(ps))}
	for _, p := range ps {
		if err := r.register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(p providers.Provider) error {
	id := p.Identity()
	if id == "" {
		return fmt.Errorf("provider has empty identity: %T", p)
	}
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("provider already registered: %s", id)
	}
	r.byID[id] = p
	return nil
}

// Resolve returns the provider for the given identity.
func (r *Registry) Resolve(id providers.ID) (providers.Provider, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns the registered providers in unspecified order.
func (r *Registry) All() []providers.Provider {
	out := make([]providers.Provider, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}
