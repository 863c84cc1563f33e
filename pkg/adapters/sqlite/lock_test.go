package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/lmrtfy/pkg/adapters/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_LockUnlock(t *testing.T) {
	locker := sqlite.NewLocker(t.TempDir())
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "analytics:cleanup", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))

	unlock, err = locker.Lock(ctx, "analytics:cleanup", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestLocker_Contention(t *testing.T) {
	dir := t.TempDir()
	// Two lockers stand in for two processes sharing the directory.
	first, second := sqlite.NewLocker(dir), sqlite.NewLocker(dir)
	ctx := context.Background()

	unlock, err := first.Lock(ctx, "job", time.Minute)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = second.Lock(waitCtx, "job", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Other keys are independent.
	other, err := second.Lock(ctx, "other", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	again, err := second.Lock(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLockerFor_SharesDirectoryWithDatabase(t *testing.T) {
	dir := t.TempDir()
	a := sqlite.LockerFor(filepath.Join(dir, "analytics.db"))
	b := sqlite.NewLocker(dir)
	ctx := context.Background()

	unlock, err := a.Lock(ctx, "analytics-cleanup", time.Minute)
	require.NoError(t, err)
	defer func() { _ = unlock(ctx) }()

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = b.Lock(waitCtx, "analytics-cleanup", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
