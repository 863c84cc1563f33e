package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lmrtfy/pkg/adapters/redis"
	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/ports"
	"github.com/aretw0/lmrtfy/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	tests.EventStoreContractTest(t, func(t *testing.T) ports.EventStore {
		store, _ := newStore(t)
		return store
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	store, mr := newStore(t, redis.WithPrefix("test:"))
	ctx := context.Background()

	at := time.UnixMilli(1_700_000_000_123).UTC()
	require.NoError(t, store.Append(ctx, domain.NewAnalyticsEvent(domain.EventLinkGenerated, at, "hi", "", ""), 10))

	assert.True(t, mr.Exists("test:events"))
	members, err := mr.ZMembers("test:events")
	require.NoError(t, err)
	require.Len(t, members, 1)

	score, err := mr.ZScore("test:events", members[0])
	require.NoError(t, err)
	assert.Equal(t, float64(1_700_000_000_123), score)
}

func TestRedisStore_SameMillisecondKeepsTimeOrder(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	base := time.UnixMilli(1_700_000_000_000).UTC()
	var ids []string
	for i := 0; i < 5; i++ {
		e := domain.NewAnalyticsEvent(domain.EventLinkVisited, base.Add(time.Duration(i)*time.Microsecond), "", "", "")
		ids = append(ids, e.ID)
		require.NoError(t, store.Append(ctx, e, 0))
	}

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, e := range events {
		assert.Equal(t, ids[i], e.ID)
	}
}

func TestRedisStore_CorruptMember(t *testing.T) {
	store, mr := newStore(t)
	_, err := mr.ZAdd("lmrtfy:analytics:events", 1, "not json")
	require.NoError(t, err)

	_, err = store.List(context.Background())
	assert.Error(t, err)
}

func TestRedisStore_BackendDown(t *testing.T) {
	store, mr := newStore(t)
	mr.Close()

	err := store.Append(context.Background(), domain.NewAnalyticsEvent(domain.EventLinkGenerated, time.Now(), "", "", ""), 0)
	assert.Error(t, err)
	assert.Error(t, store.Ping(context.Background()))
}
