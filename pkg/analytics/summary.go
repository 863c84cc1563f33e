package analytics

import (
	"sort"
	"time"

	"github.com/aretw0/lmrtfy/pkg/domain"
)

// SummaryOptions bounds the lists of a Stats summary.
type SummaryOptions struct {
	RecentLimit int `yaml:"recent_limit" mapstructure:"recent_limit"`
	TopPrompts  int `yaml:"top_prompts" mapstructure:"top_prompts"`
	Days        int `yaml:"days" mapstructure:"days"`
}

// DefaultSummaryOptions returns 50 recent events, 10 top prompts and 30 days.
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{RecentLimit: 50, TopPrompts: 10, Days: 30}
}

func (o SummaryOptions) withDefaults() SummaryOptions {
	d := DefaultSummaryOptions()
	if o.RecentLimit <= 0 {
		o.RecentLimit = d.RecentLimit
	}
	if o.TopPrompts <= 0 {
		o.TopPrompts = d.TopPrompts
	}
	if o.Days <= 0 {
		o.Days = d.Days
	}
	return o
}

// Summarize builds the dashboard view of an oldest-first event log.
// Daily buckets are UTC days ending with the day of now, oldest first.
func Summarize(events []domain.AnalyticsEvent, now time.Time, opts SummaryOptions) domain.Stats {
	opts = opts.withDefaults()

	stats := domain.Stats{
		RecentEvents: make([]domain.AnalyticsEvent, 0, min(len(events), opts.RecentLimit)),
		TopPrompts:   []domain.PromptCount{},
		DailyStats:   make([]domain.DailyStat, 0, opts.Days),
	}

	var order []string
	counts := make(map[string]int)
	for _, e := range events {
		switch e.Type {
		case domain.EventLinkGenerated:
			stats.TotalLinksGenerated++
			if e.Prompt != "" {
				if _, seen := counts[e.Prompt]; !seen {
					order = append(order, e.Prompt)
				}
				counts[e.Prompt]++
			}
		case domain.EventLinkVisited:
			stats.TotalLinksVisited++
		}
	}

	for i := len(events) - 1; i >= 0 && len(stats.RecentEvents) < opts.RecentLimit; i-- {
		stats.RecentEvents = append(stats.RecentEvents, events[i])
	}

	// Ties keep first-seen order.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	for _, p := range order[:min(len(order), opts.TopPrompts)] {
		stats.TopPrompts = append(stats.TopPrompts, domain.PromptCount{Prompt: p, Count: counts[p]})
	}

	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	first := today.AddDate(0, 0, -(opts.Days - 1))
	index := make(map[string]int, opts.Days)
	for i := 0; i < opts.Days; i++ {
		date := first.AddDate(0, 0, i).Format(time.DateOnly)
		index[date] = i
		stats.DailyStats = append(stats.DailyStats, domain.DailyStat{Date: date})
	}
	for _, e := range events {
		i, ok := index[e.Timestamp.UTC().Format(time.DateOnly)]
		if !ok {
			continue
		}
		switch e.Type {
		case domain.EventLinkGenerated:
			stats.DailyStats[i].Generated++
		case domain.EventLinkVisited:
			stats.DailyStats[i].Visited++
		}
	}

	return stats
}
