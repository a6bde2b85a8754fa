package domain

import (
	"fmt"
	"time"
)

// Metric is a leaderboard ordering key.
type Metric string

const (
	MetricFactsViewed   Metric = "facts"
	MetricLongestStreak Metric = "streak"
	MetricFactsSaved    Metric = "saved"
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricFactsViewed, MetricLongestStreak, MetricFactsSaved:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// Value extracts the metric from stats.
func (m Metric) Value(s Stats) int {
	switch m {
	case MetricLongestStreak:
		return s.LongestStreak
	case MetricFactsSaved:
		return s.FactsSaved
	default:
		return s.FactsViewed
	}
}

// Unit is the suffix shown after a metric value.
func (m Metric) Unit() string {
	switch m {
	case MetricLongestStreak:
		return "days"
	case MetricFactsSaved:
		return "saved"
	default:
		return "facts"
	}
}

// Period is a leaderboard window. Windows filter on the user's last update,
// which approximates "active in period"; counters are all-time.
type Period string

const (
	PeriodAllTime Period = "all_time"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodAllTime, PeriodWeekly, PeriodMonthly:
		return Period(s), nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Since returns the lower bound of the window ending at now, or nil for all time.
func (p Period) Since(now time.Time) *time.Time {
	var d time.Duration
	switch p {
	case PeriodWeekly:
		d = 7 * 24 * time.Hour
	case PeriodMonthly:
		d = 30 * 24 * time.Hour
	default:
		return nil
	}
	t := now.Add(-d).UTC()
	return &t
}

func (p Period) Title() string {
	switch p {
	case PeriodWeekly:
		return "Weekly"
	case PeriodMonthly:
		return "Monthly"
	default:
		return "All Time"
	}
}
