package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lmrtfy/internal/config"
	httpAdapter "github.com/aretw0/lmrtfy/pkg/adapters/http"
	"github.com/aretw0/lmrtfy/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/lmrtfy/pkg/adapters/redis"
	sqliteAdapter "github.com/aretw0/lmrtfy/pkg/adapters/sqlite"
	"github.com/aretw0/lmrtfy/pkg/analytics"
	"github.com/aretw0/lmrtfy/pkg/persistence/middleware"
	"github.com/aretw0/lmrtfy/pkg/ports"
	"github.com/aretw0/lmrtfy/pkg/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the link service: the link API, the link page, the playback
streams and, when enabled, analytics. Analytics are kept in memory unless
redis.addr is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
}

// serve runs the HTTP server until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []httpAdapter.Option{
		httpAdapter.WithLogger(logger),
		httpAdapter.WithRegistry(registry),
		httpAdapter.WithCodec(token.New(token.WithLevel(cfg.Links.CompressionLevel))),
	}

	// The store closes only after the group below has stopped the janitor.
	g, ctx := errgroup.WithContext(ctx)
	if cfg.Analytics.Enabled {
		svc, closeStore, err := newAnalytics(ctx, cfg, logger, registry)
		if err != nil {
			return err
		}
		defer closeStore()
		g.Go(func() error {
			svc.RunJanitor(ctx)
			return nil
		})
		opts = append(opts, httpAdapter.WithAnalytics(svc))
	}

	handler := httpAdapter.NewHandler(httpAdapter.Config{
		PublicURL:      cfg.Server.PublicURL,
		AssistantURL:   cfg.Links.AssistantURL,
		MaxPromptBytes: cfg.Links.MaxPromptBytes,
		CORSOrigin:     cfg.Server.CORSOrigin,
		Timing:         cfg.Playback,
	}, opts...)

	// Requests derive from ctx so that open SSE streams end on shutdown.
	baseContext := func(net.Listener) context.Context { return ctx }
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     handler,
		BaseContext: baseContext,
	}

	g.Go(func() error {
		logger.Info("Starting lmrtfy server", "address", srv.Addr, "analytics", cfg.Analytics.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Start shutdown...")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "error", err)
			if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("lmrtfy server stopped gracefully")
	return nil
}

// newAnalytics builds the analytics service on Redis when configured,
// in memory otherwise.
func newAnalytics(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*analytics.Service, func(), error) {
	var (
		store     ports.EventStore
		locker    ports.DistributedLocker
		closeFunc = func() {}
	)

	switch {
	case cfg.Redis.Addr != "":
		rs := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisAdapter.WithPrefix(cfg.Redis.Prefix+"analytics:"))
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		store = rs
		locker = redisAdapter.NewLocker(rs.Client(), cfg.Redis.Prefix)
		closeFunc = func() {
			if err := rs.Close(); err != nil {
				logger.Warn("redis close failed", "error", err)
			}
		}
		logger.Info("Analytics backed by Redis", "addr", cfg.Redis.Addr)
	case cfg.Analytics.SQLitePath != "":
		ss, err := sqliteAdapter.Open(ctx, cfg.Analytics.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("analytics database: %w", err)
		}
		store = ss
		locker = sqliteAdapter.LockerFor(ss.Path())
		closeFunc = func() {
			if err := ss.Close(); err != nil {
				logger.Warn("sqlite close failed", "error", err)
			}
		}
		logger.Info("Analytics backed by SQLite", "path", ss.Path())
	default:
		store = memory.NewStore()
		locker = memory.NewLocker()
		logger.Info("Analytics kept in memory")
	}

	store, err := protect(store, cfg.Analytics)
	if err != nil {
		closeFunc()
		return nil, nil, err
	}

	svc := analytics.NewService(store,
		analytics.WithLocker(locker),
		analytics.WithLogger(logger),
		analytics.WithMetrics(analytics.NewMetrics(reg)),
		analytics.WithCapacity(cfg.Analytics.Capacity),
		analytics.WithRetention(cfg.Analytics.Retention),
		analytics.WithCleanupInterval(cfg.Analytics.CleanupInterval),
		analytics.WithSummaryOptions(cfg.Analytics.Summary),
	)
	return svc, closeFunc, nil
}

// protect masks configured patterns and, when keys are set, encrypts events at rest.
func protect(store ports.EventStore, cfg config.AnalyticsConfig) (ports.EventStore, error) {
	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}

	keys, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    keys[0],
			FallbackKeys: keys[1:],
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}
