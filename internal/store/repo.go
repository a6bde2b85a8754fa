package store

import (
	"context"
	"errors"
	"time"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrConflict      = errors.New("user was modified concurrently")
	ErrDuplicateFact = errors.New("fact already saved")
)

// ThemeCount is the number of saves for one theme.
type ThemeCount struct {
	Theme domain.Theme
	Count int
}

// Summary is the bot-wide engagement snapshot used by admin analytics.
type Summary struct {
	TotalUsers      int
	ActiveToday     int // updated within the last 24h
	ActiveWeek      int // updated within the last 7 days
	TotalViewed     int
	TotalSaved      int
	TopSavedThemes  []ThemeCount
	NewUsersWeek    int
	QuizzesFinished int
}

// Repo defines storage operations for users, engagement and rankings.
type Repo interface {
	// EnsureUser returns the user, creating it with defaults on first contact.
	// Non-empty profile fields refresh the stored ones.
	EnsureUser(ctx context.Context, id int64, displayName, handle string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// ListNotifiable returns every user with notifications enabled.
	ListNotifiable(ctx context.Context) ([]domain.User, error)

	// UpdateStreak writes streak fields only if the stored version still equals version.
	UpdateStreak(ctx context.Context, id int64, version int64, s domain.Stats) (*domain.User, error)
	AddBadges(ctx context.Context, id int64, badges []domain.Badge) (*domain.User, error)
	IncrementViewed(ctx context.Context, id int64) (*domain.User, error)
	// SaveFact appends f and bumps FactsSaved, or returns ErrDuplicateFact.
	SaveFact(ctx context.Context, id int64, f domain.SavedFact) (*domain.User, error)
	MarkNotified(ctx context.Context, id int64, at time.Time) error

	SetNotifications(ctx context.Context, id int64, enabled bool, dailyTime, tz string) error
	SetFavoriteTheme(ctx context.Context, id int64, th domain.Theme) error
	RecordQuizResult(ctx context.Context, id int64, r domain.QuizResult) (domain.QuizStats, error)

	// TopBy returns up to limit users ordered by metric descending.
	// A non-nil since keeps only users updated at or after it.
	TopBy(ctx context.Context, m domain.Metric, since *time.Time, limit int) ([]domain.User, error)
	// CountGreater counts users whose metric is strictly greater than value.
	CountGreater(ctx context.Context, m domain.Metric, value int) (int, error)
	CountUsers(ctx context.Context) (int, error)
	Summary(ctx context.Context, now time.Time) (Summary, error)

	Close() error
}

// ListDue returns the notifiable users whose daily time matches now.
// Users with malformed times are dropped here rather than failing the call.
func ListDue(ctx context.Context, r Repo, now time.Time, mode domain.ClockMode, fallback *time.Location) ([]domain.User, error) {
	users, err := r.ListNotifiable(ctx)
	if err != nil {
		return nil, err
	}
	due := users[:0]
	for _, u := range users {
		if domain.IsDue(u.Preferences, now, mode, fallback) {
			due = append(due, u)
		}
	}
	return due, nil
}
