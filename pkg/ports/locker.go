package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates work across replicas.
// The analytics janitor takes a lock per cleanup so that only one instance
// prunes a shared log at a time.
type DistributedLocker interface {
	// Lock attempts to acquire a lock for key.
	// It blocks until the lock is acquired or the context is canceled.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
