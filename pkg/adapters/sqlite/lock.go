package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/lmrtfy/pkg/ports"
	"github.com/gofrs/flock"
)

// Locker implements ports.DistributedLocker with advisory file locks, so
// processes sharing one database file on a host take turns.
// The ttl is ignored: the kernel drops the lock if the holder dies.
type Locker struct {
	dir   string
	retry time.Duration
}

// NewLocker keeps its lock files in dir.
func NewLocker(dir string) *Locker {
	return &Locker{dir: dir, retry: 100 * time.Millisecond}
}

// LockerFor places the lock files next to the database at path.
func LockerFor(path string) *Locker {
	if path == ":memory:" {
		return NewLocker(os.TempDir())
	}
	return NewLocker(filepath.Dir(path))
}

func (l *Locker) path(key string) string {
	name := strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(key)
	return filepath.Join(l.dir, "."+name+".lock")
}

// Lock polls until the file lock for key is held or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	fl := flock.New(l.path(key))
	ok, err := fl.TryLockContext(ctx, l.retry)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("acquire file lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire file lock %s: not acquired", fl.Path())
	}
	return func(context.Context) error {
		return fl.Unlock()
	}, nil
}
