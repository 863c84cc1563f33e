package middleware

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/ports"
)

const mask = "***"

// DefaultPIIPatterns masks e-mail addresses.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
}

type piiMiddleware struct {
	next     ports.EventStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks every match of the
// patterns in the prompt, user agent and referer of appended events.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.EventStore) ports.EventStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Append(ctx context.Context, event domain.AnalyticsEvent, capacity int) error {
	// event is a copy; the caller's value stays intact.
	event.Prompt = m.mask(event.Prompt)
	event.UserAgent = m.mask(event.UserAgent)
	event.Referer = m.mask(event.Referer)
	return m.next.Append(ctx, event, capacity)
}

func (m *piiMiddleware) List(ctx context.Context) ([]domain.AnalyticsEvent, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return m.next.DeleteBefore(ctx, cutoff)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, mask)
	}
	return s
}
