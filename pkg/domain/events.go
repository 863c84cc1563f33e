package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of an analytics event.
type EventType string

const (
	EventLinkGenerated EventType = "link_generated"
	EventLinkVisited   EventType = "link_visited"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t == EventLinkGenerated || t == EventLinkVisited
}

// AnalyticsEvent records one generated or visited link.
type AnalyticsEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Prompt    string    `json:"prompt,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Referer   string    `json:"referer,omitempty"`
}

// NewAnalyticsEvent stamps a new event with a random id.
func NewAnalyticsEvent(typ EventType, at time.Time, prompt, userAgent, referer string) AnalyticsEvent {
	return AnalyticsEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: at.UTC(),
		Prompt:    prompt,
		UserAgent: userAgent,
		Referer:   referer,
	}
}

// PromptCount is one row of the top prompts table.
type PromptCount struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

// DailyStat counts the events of one UTC day (date formatted as 2006-01-02).
type DailyStat struct {
	Date      string `json:"date"`
	Generated int    `json:"generated"`
	Visited   int    `json:"visited"`
}

// Stats is the analytics summary.
type Stats struct {
	TotalLinksGenerated int              `json:"totalLinksGenerated"`
	TotalLinksVisited   int              `json:"totalLinksVisited"`
	RecentEvents        []AnalyticsEvent `json:"recentEvents"`
	TopPrompts          []PromptCount    `json:"topPrompts"`
	DailyStats          []DailyStat      `json:"dailyStats"`
}

// SortEvents orders events oldest first. Events with equal timestamps keep
// their relative order.
func SortEvents(events []AnalyticsEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// Retain keeps the newest capacity events of an oldest-first log.
// A non-positive capacity keeps everything.
func Retain(events []AnalyticsEvent, capacity int) []AnalyticsEvent {
	if capacity <= 0 || len(events) <= capacity {
		return events
	}
	return events[len(events)-capacity:]
}

// Prune keeps the events strictly after cutoff, preserving order.
func Prune(events []AnalyticsEvent, cutoff time.Time) []AnalyticsEvent {
	kept := events[:0:0]
	for _, e := range events {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}
