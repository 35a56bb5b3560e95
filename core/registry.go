package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CatalogRegistry resolves provider ids against a static descriptor catalog.
// Credentials are injected once at construction; resolution is pure and does
// no I/O, so a descriptor for an unconfigured provider fails distinctly from
// an unknown one.
type CatalogRegistry struct {
	mu          sync.RWMutex
	descriptors map[string]ProviderDescriptor
}

func NewCatalogRegistry(descriptors ...ProviderDescriptor) (*CatalogRegistry, error) {
	registry := &CatalogRegistry{descriptors: make(map[string]ProviderDescriptor)}
	for _, descriptor := range descriptors {
		if err := registry.Register(descriptor); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (r *CatalogRegistry) Register(descriptor ProviderDescriptor) error {
	if r == nil {
		return fmt.Errorf("core: catalog registry is nil")
	}
	if err := descriptor.Validate(); err != nil {
		return err
	}
	id := strings.TrimSpace(strings.ToLower(descriptor.ID))
	descriptor.ID = id
	if strings.TrimSpace(descriptor.ResponseType) == "" {
		descriptor.ResponseType = "code"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descriptors[id]; exists {
		return fmt.Errorf("core: provider already registered: %s", id)
	}
	r.descriptors[id] = descriptor
	return nil
}

func (r *CatalogRegistry) Resolve(providerID string) (ProviderDescriptor, error) {
	if r == nil {
		return ProviderDescriptor{}, fmt.Errorf("core: catalog registry is nil")
	}
	id := strings.TrimSpace(strings.ToLower(providerID))
	if id == "" {
		return ProviderDescriptor{}, fmt.Errorf("core: provider id is required")
	}

	r.mu.RLock()
	descriptor, ok := r.descriptors[id]
	r.mu.RUnlock()

	if !ok {
		return ProviderDescriptor{}, NewUnknownProviderError(id)
	}
	if !descriptor.Configured() {
		return ProviderDescriptor{}, NewNotConfiguredError(id)
	}
	return descriptor, nil
}

// ListSupported returns every catalog id regardless of configuration status.
func (r *CatalogRegistry) ListSupported() []string {
	if r == nil {
		return []string{}
	}
	r.mu.RLock()
	ids := make([]string, 0, len(r.descriptors))
	for id := range r.descriptors {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

var _ Registry = (*CatalogRegistry)(nil)
