package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/lmrtfy/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.EventStore using a Redis sorted set.
// Each member is the JSON event, scored by its Unix time in milliseconds,
// so trimming by capacity is a rank range and cleanup is a score range.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix of the event log.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "lmrtfy:analytics:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key() string {
	return s.prefix + "events"
}

// Append adds the event and trims the log to capacity in one round trip.
func (s *Store) Append(ctx context.Context, event domain.AnalyticsEvent, capacity int) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, s.key(), backend.Z{
		Score:  float64(event.Timestamp.UnixMilli()),
		Member: data,
	})
	if capacity > 0 {
		// Keep ranks [-capacity, -1]: the newest events.
		pipe.ZRemRangeByRank(ctx, s.key(), 0, int64(-capacity-1))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append event to redis: %w", err)
	}
	return nil
}

// List returns the log oldest first.
func (s *Store) List(ctx context.Context) ([]domain.AnalyticsEvent, error) {
	members, err := s.client.ZRange(ctx, s.key(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]domain.AnalyticsEvent, 0, len(members))
	for _, m := range members {
		var e domain.AnalyticsEvent
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, e)
	}
	// Members sharing a millisecond are ordered by their bytes, not by time.
	domain.SortEvents(events)
	return events, nil
}

// DeleteBefore removes events scored at or before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.client.ZRemRangeByScore(ctx, s.key(), "-inf", strconv.FormatInt(cutoff.UnixMilli(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return int(n), nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
