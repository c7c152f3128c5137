package storage

import (
	"context"
	"fmt"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
)

// NewBackend opens the backend named by config.Type. An empty type means memory.
func NewBackend(ctx context.Context, config Config) (Backend, error) {
	backendType := config.Type
	if backendType == "" {
		backendType = "memory"
	}

	if !DefaultRegistry.IsRegistered(backendType) {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported cache backend: %s", backendType))
	}

	backend, err := DefaultRegistry.Create(ctx, backendType, config)
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("failed to open %s backend", backendType), err)
	}
	return backend, nil
}

// NewBackendOrMemory opens the configured backend and degrades to the
// in-process store when it cannot be reached.
func NewBackendOrMemory(ctx context.Context, config Config, logger logging.Logger) Backend {
	backend, err := NewBackend(ctx, config)
	if err == nil {
		return backend
	}

	if logger != nil {
		logger.Warn("Durable cache backend unavailable, using memory",
			logging.Field{Key: "backend", Value: config.Type},
			logging.Err(err),
		)
	}
	return NewMemoryStore()
}
