package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
)

// Registry maps object kinds to their capability sets.
type Registry struct {
	mu   sync.RWMutex
	sets map[domain.ObjectKind]ports.ObjectCapabilitySet
}

// NewRegistry creates a registry pre-populated with the given capability sets.
func NewRegistry(sets ...ports.ObjectCapabilitySet) *Registry {
	r := &Registry{
		sets: make(map[domain.ObjectKind]ports.ObjectCapabilitySet),
	}
	for _, s := range sets {
		r.Register(s)
	}
	return r
}

// Register adds a capability set under its kind.
// If a set for the same kind exists, it is overwritten.
func (r *Registry) Register(set ports.ObjectCapabilitySet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[set.Kind()] = set
}

// Get looks up the capability set for a kind.
// Returns an error wrapping domain.ErrUnsupportedKind if none is registered.
func (r *Registry) Get(kind domain.ObjectKind) (ports.ObjectCapabilitySet, error) {
	r.mu.RLock()
	set, ok := r.sets[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, kind)
	}
	return set, nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []domain.ObjectKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.ObjectKind, 0, len(r.sets))
	for k := range r.sets {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
