package analytics_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/lmrtfy/pkg/analytics"
	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 15, 18, 30, 0, 0, time.UTC)

func ev(typ domain.EventType, at time.Time, prompt string) domain.AnalyticsEvent {
	return domain.NewAnalyticsEvent(typ, at, prompt, "", "")
}

func TestSummarize_Empty(t *testing.T) {
	stats := analytics.Summarize(nil, now, analytics.DefaultSummaryOptions())

	assert.Zero(t, stats.TotalLinksGenerated)
	assert.Zero(t, stats.TotalLinksVisited)
	assert.Empty(t, stats.RecentEvents)
	assert.Empty(t, stats.TopPrompts)
	require.Len(t, stats.DailyStats, 30)
	assert.Equal(t, "2026-05-17", stats.DailyStats[0].Date)
	assert.Equal(t, "2026-06-15", stats.DailyStats[29].Date)

	raw, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"recentEvents":[]`)
	assert.Contains(t, string(raw), `"topPrompts":[]`)
}

func TestSummarize_Totals(t *testing.T) {
	events := []domain.AnalyticsEvent{
		ev(domain.EventLinkGenerated, now, "a"),
		ev(domain.EventLinkVisited, now, ""),
		ev(domain.EventLinkVisited, now, "a"),
		ev(domain.EventLinkGenerated, now, "b"),
	}
	stats := analytics.Summarize(events, now, analytics.SummaryOptions{})
	assert.Equal(t, 2, stats.TotalLinksGenerated)
	assert.Equal(t, 2, stats.TotalLinksVisited)
}

func TestSummarize_RecentNewestFirst(t *testing.T) {
	var events []domain.AnalyticsEvent
	for i := 0; i < 60; i++ {
		events = append(events, ev(domain.EventLinkVisited, now.Add(time.Duration(i)*time.Second), ""))
	}

	stats := analytics.Summarize(events, now, analytics.DefaultSummaryOptions())
	require.Len(t, stats.RecentEvents, 50)
	assert.Equal(t, events[59].ID, stats.RecentEvents[0].ID)
	assert.Equal(t, events[10].ID, stats.RecentEvents[49].ID)
}

func TestSummarize_TopPrompts(t *testing.T) {
	var events []domain.AnalyticsEvent
	add := func(prompt string, n int) {
		for i := 0; i < n; i++ {
			events = append(events, ev(domain.EventLinkGenerated, now, prompt))
		}
	}
	add("first", 2)
	add("second", 5)
	add("third", 2)
	for i := 0; i < 12; i++ {
		add(fmt.Sprintf("single-%d", i), 1)
	}
	// Visits and empty prompts do not count.
	events = append(events, ev(domain.EventLinkVisited, now, "first"), ev(domain.EventLinkGenerated, now, ""))

	stats := analytics.Summarize(events, now, analytics.DefaultSummaryOptions())
	require.Len(t, stats.TopPrompts, 10)
	assert.Equal(t, domain.PromptCount{Prompt: "second", Count: 5}, stats.TopPrompts[0])
	assert.Equal(t, domain.PromptCount{Prompt: "first", Count: 2}, stats.TopPrompts[1])
	assert.Equal(t, domain.PromptCount{Prompt: "third", Count: 2}, stats.TopPrompts[2])
	assert.Equal(t, "single-0", stats.TopPrompts[3].Prompt)
}

func TestSummarize_DailyBuckets(t *testing.T) {
	events := []domain.AnalyticsEvent{
		ev(domain.EventLinkGenerated, now.AddDate(0, 0, -40), "too old"),
		ev(domain.EventLinkGenerated, now.AddDate(0, 0, -29), "oldest bucket"),
		ev(domain.EventLinkVisited, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), ""),
		ev(domain.EventLinkGenerated, now, "today"),
		ev(domain.EventLinkVisited, time.Date(2026, 6, 14, 23, 59, 59, 0, time.UTC), ""),
	}

	stats := analytics.Summarize(events, now, analytics.DefaultSummaryOptions())
	require.Len(t, stats.DailyStats, 30)
	assert.Equal(t, domain.DailyStat{Date: "2026-05-17", Generated: 1}, stats.DailyStats[0])
	assert.Equal(t, domain.DailyStat{Date: "2026-06-14", Visited: 1}, stats.DailyStats[28])
	assert.Equal(t, domain.DailyStat{Date: "2026-06-15", Generated: 1, Visited: 1}, stats.DailyStats[29])
}

func TestSummarize_CustomOptions(t *testing.T) {
	events := []domain.AnalyticsEvent{
		ev(domain.EventLinkGenerated, now, "a"),
		ev(domain.EventLinkGenerated, now, "b"),
		ev(domain.EventLinkGenerated, now, "c"),
	}
	stats := analytics.Summarize(events, now, analytics.SummaryOptions{RecentLimit: 2, TopPrompts: 1, Days: 7})
	assert.Len(t, stats.RecentEvents, 2)
	assert.Len(t, stats.TopPrompts, 1)
	assert.Len(t, stats.DailyStats, 7)
}
