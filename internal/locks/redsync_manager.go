package locks

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/redis"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
)

const keyPrefix = "ventureflow:lock:"

// RedsyncManager implements Manager with the Redlock algorithm from
// go-redsync/redsync/v4 on the shared Redis client.
type RedsyncManager struct {
	redsync *redsync.Redsync

	mutex sync.Mutex
	held  map[*RedsyncLock]struct{}
}

// RedsyncLock wraps a redsync.Mutex and renews it at a third of its expiry.
type RedsyncLock struct {
	mutex      *redsync.Mutex
	key        string
	expiration time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	manager    *RedsyncManager
	once       sync.Once
}

// NewRedsyncManager creates a lock manager on a connected Redis client.
func NewRedsyncManager(redisClient *redis.Client) (*RedsyncManager, error) {
	if redisClient == nil {
		return nil, errors.ConfigError("redis client is required")
	}

	pool := goredis.NewPool(redisClient.GoRedis())
	return &RedsyncManager{
		redsync: redsync.New(pool),
		held:    make(map[*RedsyncLock]struct{}),
	}, nil
}

// TryAcquire makes a single attempt to take the lock.
func (rm *RedsyncManager) TryAcquire(ctx context.Context, key string, expiration time.Duration) (Lock, error) {
	mutex := rm.redsync.NewMutex(keyPrefix+key,
		redsync.WithExpiry(expiration),
		redsync.WithTries(1),
	)

	if err := mutex.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if stderrors.As(err, &taken) || stderrors.Is(err, redsync.ErrFailed) {
			return nil, ErrLockHeld
		}
		return nil, errors.StorageError(fmt.Sprintf("failed to acquire lock %s", key), err)
	}

	lockCtx, cancel := context.WithCancel(context.Background())
	lock := &RedsyncLock{
		mutex:      mutex,
		key:        key,
		expiration: expiration,
		ctx:        lockCtx,
		cancel:     cancel,
		manager:    rm,
	}

	rm.mutex.Lock()
	rm.held[lock] = struct{}{}
	rm.mutex.Unlock()

	go rm.renew(lock)
	return lock, nil
}

func (rm *RedsyncManager) renew(lock *RedsyncLock) {
	interval := lock.expiration / 3
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-lock.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ok, err := lock.mutex.ExtendContext(ctx)
			cancel()

			if err != nil || !ok {
				// lost; stop renewing and forget it
				_ = lock.Release(context.Background())
				return
			}
		}
	}
}

// Close releases every lock this manager still holds.
func (rm *RedsyncManager) Close() error {
	rm.mutex.Lock()
	locks := make([]*RedsyncLock, 0, len(rm.held))
	for lock := range rm.held {
		locks = append(locks, lock)
	}
	rm.mutex.Unlock()

	for _, lock := range locks {
		_ = lock.Release(context.Background())
	}
	return nil
}

// Key returns the key the lock was acquired for.
func (rl *RedsyncLock) Key() string {
	return rl.key
}

// Release stops renewal and deletes the lock in Redis. Only the first call
// has an effect.
func (rl *RedsyncLock) Release(ctx context.Context) error {
	var err error
	rl.once.Do(func() {
		rl.cancel()

		rl.manager.mutex.Lock()
		delete(rl.manager.held, rl)
		rl.manager.mutex.Unlock()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, unlockErr := rl.mutex.UnlockContext(ctx); unlockErr != nil {
			err = errors.StorageError(fmt.Sprintf("failed to release lock %s", rl.key), unlockErr)
		}
	})
	return err
}

// IsHeld reports whether the lock is still being renewed.
func (rl *RedsyncLock) IsHeld() bool {
	select {
	case <-rl.ctx.Done():
		return false
	default:
		return true
	}
}

var _ Manager = (*RedsyncManager)(nil)
