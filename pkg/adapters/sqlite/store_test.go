package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/lmrtfy/pkg/adapters/sqlite"
	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/ports"
	"github.com/aretw0/lmrtfy/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	tests.EventStoreContractTest(t, func(t *testing.T) ports.EventStore {
		return open(t, ":memory:")
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "analytics.db")

	first, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	at := time.Date(2026, 5, 1, 10, 0, 0, 123456789, time.UTC)
	e := domain.NewAnalyticsEvent(domain.EventLinkVisited, at, "hi", "curl/8", "https://ref.example")
	require.NoError(t, first.Append(ctx, e, 10))
	require.NoError(t, first.Close())

	// Reopening re-runs the migration step, which must be a no-op.
	second := open(t, path)
	assert.Equal(t, path, second.Path())
	got, err := second.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e, got[0])
}

func TestSQLiteStore_SameTimestampKeepsInsertOrder(t *testing.T) {
	store := open(t, ":memory:")
	ctx := context.Background()

	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 4; i++ {
		e := domain.NewAnalyticsEvent(domain.EventLinkGenerated, at, "", "", "")
		ids = append(ids, e.ID)
		require.NoError(t, store.Append(ctx, e, 3))
	}

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, ids[i+1], e.ID)
	}
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	store := open(t, ":memory:")
	ctx := context.Background()

	e := domain.NewAnalyticsEvent(domain.EventLinkGenerated, time.Now(), "hi", "", "")
	require.NoError(t, store.Append(ctx, e, 0))
	assert.Error(t, store.Append(ctx, e, 0))

	got, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1, "failed append must roll back")
}

func TestSQLiteStore_ClosedDatabase(t *testing.T) {
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.List(context.Background())
	assert.ErrorContains(t, err, "query events")
	assert.Error(t, store.Ping(context.Background()))
}
