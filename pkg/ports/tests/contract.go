package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// EventStoreContractTest is a reusable test suite that verifies if an adapter complies with ports.EventStore.
// newStore must return an empty store on every call.
func EventStoreContractTest(t *testing.T, newStore func(t *testing.T) ports.EventStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	event := func(i int, typ domain.EventType) domain.AnalyticsEvent {
		return domain.NewAnalyticsEvent(typ, base.Add(time.Duration(i)*time.Second), "prompt", "agent", "")
	}

	t.Run("List_Empty", func(t *testing.T) {
		store := newStore(t)
		events, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("Append_OldestFirst", func(t *testing.T) {
		store := newStore(t)
		want := []domain.AnalyticsEvent{
			event(0, domain.EventLinkGenerated),
			event(1, domain.EventLinkVisited),
			event(2, domain.EventLinkVisited),
		}
		for _, e := range want {
			require.NoError(t, store.Append(ctx, e, 0))
		}

		got, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.Equal(t, want[i].Type, got[i].Type)
			assert.Equal(t, want[i].Prompt, got[i].Prompt)
			assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
		}
	})

	t.Run("Append_Capacity", func(t *testing.T) {
		store := newStore(t)
		var ids []string
		for i := 0; i < 7; i++ {
			e := event(i, domain.EventLinkGenerated)
			ids = append(ids, e.ID)
			require.NoError(t, store.Append(ctx, e, 5))
		}

		got, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 5)
		assert.Equal(t, ids[2], got[0].ID)
		assert.Equal(t, ids[6], got[4].ID)
	})

	t.Run("DeleteBefore", func(t *testing.T) {
		store := newStore(t)
		for i := 0; i < 4; i++ {
			require.NoError(t, store.Append(ctx, event(i, domain.EventLinkGenerated), 0))
		}

		removed, err := store.DeleteBefore(ctx, base.Add(time.Second))
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		got, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].Timestamp.Equal(base.Add(2*time.Second)))

		removed, err = store.DeleteBefore(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}
