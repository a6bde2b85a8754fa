package domain

import "time"

const (
	DefaultTimezone = "Africa/Lagos"
	// RecentScoresCap bounds QuizStats.RecentScores.
	RecentScoresCap = 10
)

// User is one chat identity with its preferences and engagement state.
type User struct {
	ID          int64
	DisplayName string
	Handle      string
	SavedFacts  []SavedFact // chronological
	Preferences Preferences
	Stats       Stats
	Badges      []Badge
	Quiz        QuizStats
	CreatedAt   time.Time // UTC
	UpdatedAt   time.Time // UTC
	Version     int64     // bumped on every stats write, used for compare-and-swap
}

// Preferences holds user-controlled settings.
type Preferences struct {
	FavoriteTheme        Theme
	NotificationsEnabled bool
	DailyTime            string // "HH:MM", empty when never configured
	Timezone             string // IANA name
}

// Stats holds engagement counters.
type Stats struct {
	FactsViewed   int
	FactsSaved    int
	CurrentStreak int
	LongestStreak int
	// LastViewedDay is the calendar day (DayLayout) of the last recorded activity,
	// in the user's timezone. Empty when no activity was ever recorded.
	LastViewedDay        string
	LastNotificationSent *time.Time // UTC, nullable
}

// SavedFact is a fact bookmarked by the user.
type SavedFact struct {
	Theme    Theme
	FactText string
	SavedAt  time.Time
}

// QuizResult is one finished quiz.
type QuizResult struct {
	Score          int
	TotalQuestions int
	Percentage     int
	Theme          Theme
	Date           time.Time
}

// QuizStats aggregates finished quizzes; RecentScores keeps the last RecentScoresCap results, oldest first.
type QuizStats struct {
	TotalQuizzes int
	TotalScore   int
	BestScore    int
	RecentScores []QuizResult
}

// NewUser returns a user with default preferences.
func NewUser(id int64, displayName, handle string, now time.Time) *User {
	return &User{
		ID:          id,
		DisplayName: displayName,
		Handle:      handle,
		Preferences: Preferences{
			FavoriteTheme: ThemeRandomMix,
			Timezone:      DefaultTimezone,
		},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// Name returns the best human label for the user.
func (u *User) Name() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Handle != "":
		return u.Handle
	default:
		return "User"
	}
}

// HasSaved reports whether (theme, text) is already bookmarked.
func (u *User) HasSaved(theme Theme, text string) bool {
	for _, f := range u.SavedFacts {
		if f.Theme == theme && f.FactText == text {
			return true
		}
	}
	return false
}

// NewQuizResult computes the rounded percentage for a finished quiz.
func NewQuizResult(score, total int, theme Theme, at time.Time) QuizResult {
	pct := 0
	if total > 0 {
		pct = (score*200 + total) / (total * 2)
	}
	return QuizResult{
		Score:          score,
		TotalQuestions: total,
		Percentage:     pct,
		Theme:          theme,
		Date:           at.UTC(),
	}
}

// Record folds r into the aggregate, dropping the oldest recent score beyond the cap.
func (q QuizStats) Record(r QuizResult) QuizStats {
	q.TotalQuizzes++
	q.TotalScore += r.Score
	if r.Score > q.BestScore {
		q.BestScore = r.Score
	}
	recent := make([]QuizResult, 0, RecentScoresCap)
	recent = append(recent, q.RecentScores...)
	recent = append(recent, r)
	if len(recent) > RecentScoresCap {
		recent = recent[len(recent)-RecentScoresCap:]
	}
	q.RecentScores = recent
	return q
}

// AverageScore is TotalScore/TotalQuizzes rounded half up.
func (q QuizStats) AverageScore() int {
	if q.TotalQuizzes == 0 {
		return 0
	}
	return (q.TotalScore*2 + q.TotalQuizzes) / (q.TotalQuizzes * 2)
}
