package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lmrtfy/pkg/adapters/memory"
	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/ports"
	"github.com/aretw0/lmrtfy/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.EventStoreContractTest(t, func(t *testing.T) ports.EventStore {
		return memory.NewStore()
	})
}

func TestMemoryStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Append(ctx, domain.NewAnalyticsEvent(domain.EventLinkGenerated, time.Now(), "hi", "", ""), 0))

	events, err := store.List(ctx)
	require.NoError(t, err)
	events[0].Prompt = "mutated"

	again, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi", again[0].Prompt)
}

func TestMemoryStore_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(ctx, domain.NewAnalyticsEvent(domain.EventLinkVisited, time.Now(), "", "", ""), 20)
		}()
	}
	wg.Wait()

	events, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 20)
}
