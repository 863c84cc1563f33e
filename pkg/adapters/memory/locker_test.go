package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/lmrtfy/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_Contention(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "janitor", time.Minute)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctxTimeout, "janitor", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locker.Lock(ctx, "other-key", time.Minute)
	require.NoError(t, err, "distinct keys do not contend")
	require.NoError(t, other(ctx))

	acquired := make(chan struct{})
	go func() {
		unlock2, err := locker.Lock(ctx, "janitor", time.Minute)
		if err == nil {
			_ = unlock2(ctx)
		}
		close(acquired)
	}()

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx), "unlock is idempotent")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken after unlock")
	}
}
