package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestEvaluateBadges_StreakExactlySeven(t *testing.T) {
	got := EvaluateBadges(Stats{CurrentStreak: 7}, nil, true)
	want := []Badge{BadgeStreakLeader, BadgePerfectWeek}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}

	if got := EvaluateBadges(Stats{CurrentStreak: 8}, nil, true); len(got) != 0 {
		t.Fatalf("8-day streak must not award streak badges, got %v", got)
	}
	if got := EvaluateBadges(Stats{CurrentStreak: 7}, nil, false); len(got) != 0 {
		t.Fatalf("same-day call must not award streak badges, got %v", got)
	}
}

func TestEvaluateBadges_Counters(t *testing.T) {
	got := EvaluateBadges(Stats{FactsViewed: 100, FactsSaved: 20}, nil, false)
	want := []Badge{BadgeKnowledgeSeeker, BadgeHistorian, BadgeCollector}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	if got := EvaluateBadges(Stats{FactsViewed: 49, FactsSaved: 19}, nil, false); len(got) != 0 {
		t.Fatalf("below thresholds, got %v", got)
	}
}

func TestEvaluateBadges_SkipsOwned(t *testing.T) {
	owned := []Badge{BadgeKnowledgeSeeker}
	got := EvaluateBadges(Stats{FactsViewed: 60}, owned, false)
	if len(got) != 0 {
		t.Fatalf("owned badge returned again: %v", got)
	}
}

func TestBadgesNeverShrink(t *testing.T) {
	now := mustLocal(t, "UTC", 2025, time.January, 1, 9, 0)
	var (
		s     Stats
		owned []Badge
	)
	// Seven consecutive days, a gap, then seven more.
	for day := 0; day < 20; day++ {
		if day == 8 || day == 9 {
			continue
		}
		s.FactsViewed += 10
		var change StreakChange
		s, change = AdvanceStreak(s, now.AddDate(0, 0, day), time.UTC)
		before := len(owned)
		owned = MergeBadges(owned, EvaluateBadges(s, owned, change.Advanced())...)
		if len(owned) < before {
			t.Fatalf("badges shrank on day %d", day)
		}
	}
	for _, b := range []Badge{BadgeStreakLeader, BadgePerfectWeek, BadgeKnowledgeSeeker, BadgeHistorian} {
		if !HasBadge(owned, b) {
			t.Fatalf("missing %s in %v", b, owned)
		}
	}
	if len(owned) != 4 {
		t.Fatalf("duplicates in %v", owned)
	}
}

func TestMergeBadges_NoDuplicates(t *testing.T) {
	got := MergeBadges([]Badge{BadgeCollector}, BadgeCollector, BadgeHistorian, BadgeHistorian)
	want := []Badge{BadgeCollector, BadgeHistorian}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}
