package ports

import (
	"context"
	"time"

	"github.com/aretw0/lmrtfy/pkg/domain"
)

// EventStore persists the analytics log.
// Implementations must be safe for concurrent use.
type EventStore interface {
	// Append adds an event and drops the oldest events beyond capacity.
	// A non-positive capacity disables the cap.
	Append(ctx context.Context, event domain.AnalyticsEvent, capacity int) error

	// List returns every retained event, oldest first.
	List(ctx context.Context) ([]domain.AnalyticsEvent, error)

	// DeleteBefore removes events at or before cutoff and reports how many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
