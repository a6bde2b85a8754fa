package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/engagement"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/metrics"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/store"
)

var (
	errNoFact = errors.New("no fact available")
	errNotDue = errors.New("no longer due")
)

// Transport delivers one fact to a chat. telegram.Router implements it.
type Transport interface {
	DeliverFact(ctx context.Context, chatID int64, th domain.Theme, f domain.Fact) error
}

// FactSource picks the fact for a daily drop.
type FactSource interface {
	Random(th domain.Theme) (domain.Fact, bool)
}

// Activity records the daily engagement of a notified user.
type Activity interface {
	RecordActivity(ctx context.Context, id int64, now time.Time) (engagement.Outcome, error)
}

// Options tune a Scheduler. Zero values fall back to defaults.
type Options struct {
	Mode        domain.ClockMode
	Fallback    *time.Location
	Concurrency int
	Timeout     time.Duration
	Now         func() time.Time
}

// TickReport summarizes one sweep.
type TickReport struct {
	Due     int
	Sent    int
	Failed  int
	Skipped int
}

// Scheduler sends the daily drop to every user whose notification time matches the current minute.
type Scheduler struct {
	repo      store.Repo
	activity  Activity
	facts     FactSource
	transport Transport
	metrics   metrics.Recorder
	log       *zap.Logger
	opts      Options
}

// New builds a scheduler. Zero Options fields take their defaults.
func New(repo store.Repo, activity Activity, facts FactSource, transport Transport, rec metrics.Recorder, log *zap.Logger, opts Options) *Scheduler {
	if opts.Mode == "" {
		opts.Mode = domain.ClockUser
	}
	if opts.Fallback == nil {
		opts.Fallback = time.UTC
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		repo:      repo,
		activity:  activity,
		facts:     facts,
		transport: transport,
		metrics:   rec,
		log:       log,
		opts:      opts,
	}
}

// untilNextMinute returns the wait until the next minute boundary after now.
func untilNextMinute(now time.Time) time.Duration {
	return now.Truncate(time.Minute).Add(time.Minute).Sub(now)
}

// Run ticks once per minute, on the minute, until ctx is canceled.
// Ticks run one at a time. A tick already started finishes its deliveries
// even if ctx is canceled meanwhile.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(untilNextMinute(s.opts.Now()))
	defer timer.Stop()

	s.log.Info("scheduler started", zap.String("clock", string(s.opts.Mode)))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-timer.C:
		}

		now := s.opts.Now().Truncate(time.Minute)
		_, _ = s.Tick(context.WithoutCancel(ctx), now)
		timer.Reset(untilNextMinute(s.opts.Now()))
	}
}

// Tick performs one sweep at now. A failure to list users aborts the sweep and is
// returned. Failures for one user are logged and counted and never stop the others.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (TickReport, error) {
	start := time.Now()

	users, err := store.ListDue(ctx, s.repo, now, s.opts.Mode, s.opts.Fallback)
	if err != nil {
		s.log.Error("list due users failed", zap.Error(err), zap.Time("tick", now))
		s.metrics.RecordTick(false, 0, time.Since(start))
		return TickReport{}, fmt.Errorf("list due: %w", err)
	}

	rep := TickReport{Due: len(users)}
	var sent, failed, skipped atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for _, u := range users {
		if domain.AlreadyNotified(u.Stats, now) {
			skipped.Add(1)
			s.metrics.RecordNotification(metrics.ResultSkipped)
			continue
		}
		g.Go(func() error {
			err := s.deliver(ctx, u, now)
			switch {
			case err == nil:
				sent.Add(1)
				s.metrics.RecordNotification(metrics.ResultSent)
			case errors.Is(err, errNoFact):
				skipped.Add(1)
				s.metrics.RecordNotification(metrics.ResultSkipped)
				s.log.Warn("no fact to deliver", zap.Int64("user_id", u.ID))
			case errors.Is(err, errNotDue):
				skipped.Add(1)
				s.metrics.RecordNotification(metrics.ResultSkipped)
				s.log.Debug("user no longer due", zap.Int64("user_id", u.ID))
			default:
				failed.Add(1)
				s.metrics.RecordNotification(metrics.ResultFailed)
				s.log.Error("daily drop failed", zap.Int64("user_id", u.ID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	rep.Sent = int(sent.Load())
	rep.Failed = int(failed.Load())
	rep.Skipped = int(skipped.Load())

	s.metrics.RecordTick(true, rep.Due, time.Since(start))
	if rep.Due > 0 {
		s.log.Info("tick done",
			zap.Time("tick", now),
			zap.Int("due", rep.Due),
			zap.Int("sent", rep.Sent),
			zap.Int("failed", rep.Failed),
			zap.Int("skipped", rep.Skipped),
		)
	}
	return rep, nil
}

// deliver runs the per-user steps under their own deadline.
func (s *Scheduler) deliver(ctx context.Context, u domain.User, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	out, err := s.activity.RecordActivity(ctx, u.ID, now)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Removed after the due list was read.
		return errNotDue
	case err != nil:
		return fmt.Errorf("record activity: %w", err)
	}
	if out.User != nil && !domain.IsDue(out.User.Preferences, now, s.opts.Mode, s.opts.Fallback) {
		return errNotDue
	}
	f, ok := s.facts.Random(domain.ThemeRandomMix)
	if !ok {
		return errNoFact
	}
	if err := s.transport.DeliverFact(ctx, u.ID, domain.ThemeRandomMix, f); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := s.repo.MarkNotified(ctx, u.ID, now); err != nil {
		// The message went out; a retry next minute would not match anyway.
		s.log.Error("mark notified failed", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	return nil
}
