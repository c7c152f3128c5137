// Package locks coordinates enrichment across service instances that share
// a Redis tier. The in-process processing markers still deduplicate within
// one instance; a lock here extends that to the whole deployment.
package locks

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld is returned when another holder owns the key.
var ErrLockHeld = errors.New("lock already held by another instance")

// Lock is an acquired lock. It is renewed in the background until released.
type Lock interface {
	Key() string
	Release(ctx context.Context) error
	IsHeld() bool
}

// Manager hands out non-blocking locks.
type Manager interface {
	// TryAcquire returns ErrLockHeld when the key is taken. Any other error
	// means the lock backend itself failed.
	TryAcquire(ctx context.Context, key string, expiration time.Duration) (Lock, error)
	Close() error
}
