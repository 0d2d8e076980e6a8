package connect

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrUnknownProvider is returned for lookups of unregistered providers.
var ErrUnknownProvider = errors.New("connect: provider not registered")

// Registry holds the connection factories of the running application.
// Lookups by providerID and by API type resolve to the same instance.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]ConnectionFactory
	byType map[reflect.Type]ConnectionFactory
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]ConnectionFactory),
		byType: make(map[reflect.Type]ConnectionFactory),
	}
}

// Register adds f. A providerID or API type can only be registered once.
func (r *Registry) Register(f ConnectionFactory) error {
	return r.register(f, true)
}

// RegisterShared adds f by providerID only. It is meant for configurable
// providers whose factories share one API client type; GetByAPIType does
// not resolve them.
func (r *Registry) RegisterShared(f ConnectionFactory) error {
	return r.register(f, false)
}

func (r *Registry) register(f ConnectionFactory, byType bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := f.ProviderID()
	if id == "" {
		return errors.New("connect: factory without provider id")
	}
	if _, dup := r.byID[id]; dup {
		return fmt.Errorf("connect: provider %q already registered", id)
	}
	if byType {
		t := f.APIType()
		if other, dup := r.byType[t]; dup {
			return fmt.Errorf("connect: api type %s already registered by %q", t, other.ProviderID())
		}
		r.byType[t] = f
	}
	r.byID[id] = f
	r.order = append(r.order, id)
	return nil
}

// MustRegister is Register for startup wiring.
func (r *Registry) MustRegister(f ConnectionFactory) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Get returns the factory registered under providerID.
func (r *Registry) Get(providerID string) (ConnectionFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byID[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}
	return f, nil
}

// GetByAPIType returns the factory producing API clients of type t.
func (r *Registry) GetByAPIType(t reflect.Type) (ConnectionFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: api type %s", ErrUnknownProvider, t)
	}
	return f, nil
}

// ProviderIDs returns the registered ids in registration order.
func (r *Registry) ProviderIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FactoryFor resolves the factory for API type A.
func FactoryFor[A any](r *Registry) (ConnectionFactory, error) {
	return r.GetByAPIType(reflect.TypeOf((*A)(nil)).Elem())
}

// Restore rebuilds a connection from d using the registered factory.
func (r *Registry) Restore(d ConnectionData) (Connection, error) {
	f, err := r.Get(d.ProviderID)
	if err != nil {
		return nil, err
	}
	return f.CreateConnectionFromData(d)
}
