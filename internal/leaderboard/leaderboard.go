// Package leaderboard ranks users and summarizes bot-wide engagement.
package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/store"
)

const DefaultLimit = 10

// Entry is one leaderboard row.
type Entry struct {
	Position int
	UserID   int64
	Name     string
	Value    int
}

// Rank is a user's standing on one metric. Tied users share a position.
type Rank struct {
	Position int
	Total    int
	Value    int
}

// Analytics is the admin summary.
type Analytics struct {
	store.Summary
	// EngagementRate is ActiveToday over TotalUsers as a whole percentage.
	EngagementRate int
}

// Service answers leaderboard and analytics queries over a Repo.
type Service struct {
	repo store.Repo
}

// New returns a Service reading from repo.
func New(repo store.Repo) *Service {
	return &Service{repo: repo}
}

// Top returns at most limit users by metric, restricted to users active within period.
func (s *Service) Top(ctx context.Context, m domain.Metric, p domain.Period, limit int, now time.Time) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	users, err := s.repo.TopBy(ctx, m, p.Since(now), limit)
	if err != nil {
		return nil, fmt.Errorf("top by %s: %w", m, err)
	}

	entries := make([]Entry, 0, len(users))
	for i, u := range users {
		v := m.Value(u.Stats)
		pos := i + 1
		// Equal values share the position of the first of them.
		if i > 0 && entries[i-1].Value == v {
			pos = entries[i-1].Position
		}
		entries = append(entries, Entry{Position: pos, UserID: u.ID, Name: u.Name(), Value: v})
	}
	return entries, nil
}

// RankOf is 1 + the number of users strictly ahead on m.
func (s *Service) RankOf(ctx context.Context, id int64, m domain.Metric) (Rank, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return Rank{}, err
	}
	v := m.Value(u.Stats)
	ahead, err := s.repo.CountGreater(ctx, m, v)
	if err != nil {
		return Rank{}, fmt.Errorf("count ahead: %w", err)
	}
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return Rank{}, fmt.Errorf("count users: %w", err)
	}
	return Rank{Position: ahead + 1, Total: total, Value: v}, nil
}

// TotalUsers counts every registered user.
func (s *Service) TotalUsers(ctx context.Context) (int, error) {
	return s.repo.CountUsers(ctx)
}

// Analytics returns the store summary with the day's engagement rate.
func (s *Service) Analytics(ctx context.Context, now time.Time) (Analytics, error) {
	sum, err := s.repo.Summary(ctx, now)
	if err != nil {
		return Analytics{}, fmt.Errorf("summary: %w", err)
	}
	a := Analytics{Summary: sum}
	if sum.TotalUsers > 0 {
		a.EngagementRate = (sum.ActiveToday*200 + sum.TotalUsers) / (sum.TotalUsers * 2)
	}
	return a, nil
}
