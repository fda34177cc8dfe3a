package oauth

import (
	"errors"
	"sort"
	"sync"
)

// ErrProviderNotFound is returned for provider names with no registered
// broker (unknown name, or credentials missing at startup).
var ErrProviderNotFound = errors.New("oauth provider not configured")

// Registry holds the configured brokers by provider name. Providers with
// missing credentials are never registered, so their routes fail fast with
// ErrProviderNotFound instead of failing mid-flow.
type Registry struct {
	mu      sync.RWMutex
	brokers map[string]*Broker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{brokers: make(map[string]*Broker)}
}

// Register adds a broker under its provider name.
func (r *Registry) Register(b *Broker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brokers[b.Name()] = b
}

// Get returns the broker for a provider name.
func (r *Registry) Get(name string) (*Broker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.brokers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return b, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.brokers))
	for name := range r.brokers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
