package store

import (
	"database/sql"
	"time"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
)

func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// themeOr parses a stored theme id, tolerating rows written before a theme was renamed.
func themeOr(s string, fallback domain.Theme) domain.Theme {
	th, err := domain.ParseTheme(s)
	if err != nil {
		return fallback
	}
	return th
}

// metricColumn maps a metric to its users column. Only these literals reach SQL.
func metricColumn(m domain.Metric) string {
	switch m {
	case domain.MetricLongestStreak:
		return "longest_streak"
	case domain.MetricFactsSaved:
		return "facts_saved"
	default:
		return "facts_viewed"
	}
}
