// Package storage provides the durable backends behind the tiered cache:
// an in-process map, Redis, and a SQL table on SQLite or PostgreSQL.
package storage

import (
	"context"
)

// Store is a string key-value store. Get reports a missing key with ok=false
// and a nil error; any error means the backend itself failed.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend is a Store with a connection lifecycle.
type Backend interface {
	Store
	Health(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Type is one of memory, redis, sqlite or postgres.
	Type         string
	DatabasePath string
	PostgresURL  string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
}
