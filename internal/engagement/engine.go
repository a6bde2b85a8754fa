// Package engagement applies streak transitions and awards badges.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/metrics"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/store"
)

const (
	conflictAttempts = 5
	conflictDelay    = 5 * time.Millisecond
	awardAttempts    = 3
	awardDelay       = 20 * time.Millisecond
)

// Outcome is the result of one recorded activity.
type Outcome struct {
	Streak    int
	Longest   int
	Change    domain.StreakChange
	NewBadges []domain.Badge
	User      *domain.User
}

// Engine is the streak and badge engine.
type Engine struct {
	repo     store.Repo
	fallback *time.Location
	metrics  metrics.Recorder
	log      *zap.Logger
}

// New builds an engine. fallback is used for users whose timezone cannot be loaded.
func New(repo store.Repo, fallback *time.Location, rec metrics.Recorder, log *zap.Logger) *Engine {
	if fallback == nil {
		fallback = time.UTC
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{repo: repo, fallback: fallback, metrics: rec, log: log}
}

// RecordActivity advances the user's streak for the day of now and awards any
// badges that became due. Repeated calls on the same day change nothing.
func (e *Engine) RecordActivity(ctx context.Context, id int64, now time.Time) (Outcome, error) {
	var out Outcome
	err := retry.Do(
		func() error {
			u, err := e.repo.GetUser(ctx, id)
			if err != nil {
				return err
			}
			loc := domain.ResolveLocation(u.Preferences.Timezone, e.fallback)
			next, change := domain.AdvanceStreak(u.Stats, now, loc)
			if change.Advanced() {
				if u, err = e.repo.UpdateStreak(ctx, id, u.Version, next); err != nil {
					return err
				}
			}
			out = Outcome{
				Streak:  u.Stats.CurrentStreak,
				Longest: u.Stats.LongestStreak,
				Change:  change,
				User:    u,
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(conflictAttempts),
		retry.Delay(conflictDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, store.ErrConflict) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return Outcome{}, fmt.Errorf("record activity for %d: %w", id, err)
	}

	u, fresh, err := e.award(ctx, out.User, out.Change.Advanced())
	if err != nil {
		return Outcome{}, err
	}
	out.User = u
	out.NewBadges = fresh
	return out, nil
}

// RecordView counts one viewed fact and then records the day's activity.
func (e *Engine) RecordView(ctx context.Context, id int64, now time.Time) (Outcome, error) {
	if _, err := e.repo.IncrementViewed(ctx, id); err != nil {
		return Outcome{}, fmt.Errorf("increment viewed for %d: %w", id, err)
	}
	return e.RecordActivity(ctx, id, now)
}

// SaveFact bookmarks f for the user. A fact already saved returns store.ErrDuplicateFact.
func (e *Engine) SaveFact(ctx context.Context, id int64, f domain.Fact, now time.Time) (*domain.User, []domain.Badge, error) {
	u, err := e.repo.SaveFact(ctx, id, domain.SavedFact{
		Theme:    f.Theme,
		FactText: f.Drop,
		SavedAt:  now,
	})
	if err != nil {
		return nil, nil, err
	}
	return e.award(ctx, u, false)
}

func (e *Engine) award(ctx context.Context, u *domain.User, streakAdvanced bool) (*domain.User, []domain.Badge, error) {
	fresh := domain.EvaluateBadges(u.Stats, u.Badges, streakAdvanced)
	if len(fresh) == 0 {
		return u, nil, nil
	}
	// Streak badges fire only on the crossing day, so a failed write is not retried later.
	var updated *domain.User
	err := retry.Do(
		func() error {
			var err error
			updated, err = e.repo.AddBadges(ctx, u.ID, fresh)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(awardAttempts),
		retry.Delay(awardDelay),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, store.ErrNotFound) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		e.log.Error("badge award lost",
			zap.Int64("user_id", u.ID),
			zap.Any("badges", fresh),
			zap.Int("streak", u.Stats.CurrentStreak),
			zap.Error(err),
		)
		return nil, nil, fmt.Errorf("add badges for %d: %w", u.ID, err)
	}
	for _, b := range fresh {
		e.metrics.RecordBadge(string(b))
	}
	e.log.Info("badges awarded",
		zap.Int64("user_id", u.ID),
		zap.Any("badges", fresh),
		zap.Int("streak", updated.Stats.CurrentStreak),
	)
	return updated, fresh, nil
}
