package main

import (
	"context"
	"encoding/base64"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lmrtfy/internal/config"
	"github.com/aretw0/lmrtfy/internal/logging"
	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalytics_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	svc, closeStore, err := newAnalytics(ctx, cfg, logging.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer closeStore()

	_, err = svc.Record(ctx, domain.EventLinkGenerated, "ping me at a@b.io", "test", "")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalLinksGenerated)
	assert.Equal(t, "ping me at ***", stats.TopPrompts[0].Prompt, "e-mails are redacted by default")
}

func TestNewAnalytics_RedisEncrypted(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	cfg.Analytics.EncryptionKeys = []string{base64.StdEncoding.EncodeToString(make([]byte, 32))}

	svc, closeStore, err := newAnalytics(ctx, cfg, logging.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer closeStore()

	_, err = svc.Record(ctx, domain.EventLinkGenerated, "secret question", "test", "")
	require.NoError(t, err)

	members, err := mr.ZMembers("lmrtfy:analytics:events")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.NotContains(t, members[0], "secret question")
	assert.True(t, strings.Contains(members[0], "enc:v1:"))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret question", stats.TopPrompts[0].Prompt)
}

func TestNewAnalytics_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	mr.Close()

	_, _, err := newAnalytics(context.Background(), cfg, logging.NewNop(), nil)
	assert.ErrorContains(t, err, "redis unreachable")
}

func TestNewAnalytics_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Analytics.SQLitePath = filepath.Join(t.TempDir(), "analytics.db")

	svc, closeStore, err := newAnalytics(ctx, cfg, logging.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	_, err = svc.Record(ctx, domain.EventLinkVisited, "kept on disk", "test", "")
	require.NoError(t, err)
	closeStore()

	// A second process sees the events written by the first.
	svc, closeStore, err = newAnalytics(ctx, cfg, logging.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer closeStore()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalLinksVisited)
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Analytics.SQLitePath = filepath.Join(t.TempDir(), "analytics.db")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logging.NewNop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestServe_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default()
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), cfg, logging.NewNop()) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "server error")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not report the bind failure")
	}
}
