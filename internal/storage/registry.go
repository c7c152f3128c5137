package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory opens a backend from configuration.
type Factory func(ctx context.Context, config Config) (Backend, error)

type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(backendType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[backendType] = factory
}

func (r *Registry) Create(ctx context.Context, backendType string, config Config) (Backend, error) {
	r.mu.RLock()
	factory, exists := r.factories[backendType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("storage type %s not registered", backendType)
	}

	return factory(ctx, config)
}

func (r *Registry) GetAvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for backendType := range r.factories {
		types = append(types, backendType)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) IsRegistered(backendType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[backendType]
	return exists
}

var DefaultRegistry = NewRegistry()

func Register(backendType string, factory Factory) {
	DefaultRegistry.Register(backendType, factory)
}

func init() {
	Register("memory", func(ctx context.Context, config Config) (Backend, error) {
		return NewMemoryStore(), nil
	})
	Register("redis", openRedis)
	Register("sqlite", openSQLite)
	Register("postgres", openPostgres)
}
