package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/ports"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultCapacity        = 1000
	DefaultRetention       = 30 * 24 * time.Hour
	DefaultCleanupInterval = time.Hour

	cleanupLockKey = "analytics-cleanup"
	lockWait       = 5 * time.Second
)

// Service records and summarizes analytics events.
type Service struct {
	store    ports.EventStore
	locker   ports.DistributedLocker
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *Metrics
	capacity int
	retain   time.Duration
	interval time.Duration
	summary  SummaryOptions

	mu    sync.RWMutex
	hooks []func(domain.AnalyticsEvent)
}

// Option configures a Service.
type Option func(*Service)

// WithLocker guards cleanup with a distributed lock.
func WithLocker(l ports.DistributedLocker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithClock sets the clock used for timestamps and the janitor.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCapacity caps the log. Zero or less keeps the default.
func WithCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithRetention sets how long events survive cleanup.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retain = d
		}
	}
}

// WithCleanupInterval sets the janitor period.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSummaryOptions bounds the Stats lists.
func WithSummaryOptions(o SummaryOptions) Option {
	return func(s *Service) {
		s.summary = o.withDefaults()
	}
}

// NewService creates a Service on top of store.
func NewService(store ports.EventStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
		capacity: DefaultCapacity,
		retain:   DefaultRetention,
		interval: DefaultCleanupInterval,
		summary:  DefaultSummaryOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnRecord registers fn to be called after every successful Record.
// Hooks run on the recording goroutine and must not block.
func (s *Service) OnRecord(fn func(domain.AnalyticsEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Record appends a new event to the log.
func (s *Service) Record(ctx context.Context, typ domain.EventType, prompt, userAgent, referer string) (domain.AnalyticsEvent, error) {
	if !typ.Valid() {
		return domain.AnalyticsEvent{}, fmt.Errorf("%w: %q", domain.ErrUnknownEventType, typ)
	}

	event := domain.NewAnalyticsEvent(typ, s.clock.Now(), prompt, userAgent, referer)
	if err := s.store.Append(ctx, event, s.capacity); err != nil {
		return domain.AnalyticsEvent{}, fmt.Errorf("failed to record %s: %w", typ, err)
	}
	s.metrics.recorded(typ)

	s.mu.RLock()
	hooks := s.hooks
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(event)
	}
	return event, nil
}

// Stats summarizes the current log.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	events, err := s.store.List(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to load analytics: %w", err)
	}
	s.metrics.retainedN(len(events))
	return Summarize(events, s.clock.Now(), s.summary), nil
}

// Cleanup removes events older than the retention window.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.retain)
	n, err := s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up analytics: %w", err)
	}
	s.metrics.prunedN(n)
	if n > 0 {
		s.logger.Info("analytics cleanup", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}

// RunJanitor calls Cleanup every cleanup interval until ctx is done.
// With a locker, a tick whose lock is held elsewhere is skipped.
func (s *Service) RunJanitor(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("analytics janitor started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("analytics janitor stopped")
			return
		case <-ticker.Chan():
			if err := s.cleanupOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("analytics cleanup skipped", "error", err)
			}
		}
	}
}

func (s *Service) cleanupOnce(ctx context.Context) error {
	if s.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, lockWait)
		unlock, err := s.locker.Lock(lockCtx, cleanupLockKey, s.interval)
		cancel()
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release cleanup lock", "error", err)
			}
		}()
	}
	_, err := s.Cleanup(ctx)
	return err
}
