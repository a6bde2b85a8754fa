package domain

import (
	"testing"
	"time"
)

func TestAdvanceStreak_SameDayIsNoop(t *testing.T) {
	now := mustLocal(t, "UTC", 2025, time.March, 10, 18, 0)
	s := Stats{CurrentStreak: 3, LongestStreak: 5, LastViewedDay: "2025-03-10"}

	got, change := AdvanceStreak(s, now, time.UTC)
	if change != StreakUnchanged {
		t.Fatalf("want unchanged, got %s", change)
	}
	if got != s {
		t.Fatalf("stats changed: %+v", got)
	}
}

func TestAdvanceStreak_Yesterday(t *testing.T) {
	now := mustLocal(t, "UTC", 2025, time.March, 10, 0, 5)
	s := Stats{CurrentStreak: 5, LongestStreak: 5, LastViewedDay: "2025-03-09"}

	got, change := AdvanceStreak(s, now, time.UTC)
	if change != StreakContinued {
		t.Fatalf("want continued, got %s", change)
	}
	if got.CurrentStreak != 6 || got.LongestStreak != 6 || got.LastViewedDay != "2025-03-10" {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestAdvanceStreak_YesterdayKeepsHigherLongest(t *testing.T) {
	now := mustLocal(t, "UTC", 2025, time.March, 10, 12, 0)
	s := Stats{CurrentStreak: 2, LongestStreak: 9, LastViewedDay: "2025-03-09"}

	got, _ := AdvanceStreak(s, now, time.UTC)
	if got.CurrentStreak != 3 || got.LongestStreak != 9 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestAdvanceStreak_GapResetsToOne(t *testing.T) {
	now := mustLocal(t, "UTC", 2025, time.March, 10, 12, 0)
	s := Stats{CurrentStreak: 4, LongestStreak: 4, LastViewedDay: "2025-03-08"}

	got, change := AdvanceStreak(s, now, time.UTC)
	if change != StreakReset {
		t.Fatalf("want reset, got %s", change)
	}
	if got.CurrentStreak != 1 || got.LongestStreak != 4 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestAdvanceStreak_FirstActivity(t *testing.T) {
	now := mustLocal(t, "UTC", 2025, time.March, 10, 12, 0)

	got, change := AdvanceStreak(Stats{}, now, time.UTC)
	if change != StreakReset {
		t.Fatalf("want reset, got %s", change)
	}
	if got.CurrentStreak != 1 || got.LongestStreak != 1 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestAdvanceStreak_Idempotent(t *testing.T) {
	now := mustLocal(t, "UTC", 2025, time.March, 10, 9, 0)
	first, _ := AdvanceStreak(Stats{LastViewedDay: "2025-03-09", CurrentStreak: 1, LongestStreak: 1}, now, time.UTC)
	second, change := AdvanceStreak(first, now.Add(3*time.Hour), time.UTC)
	if change != StreakUnchanged || second != first {
		t.Fatalf("second call changed state: %+v -> %+v", first, second)
	}
}

func TestAdvanceStreak_DayBoundaryInUserTimezone(t *testing.T) {
	// 23:30 UTC on the 9th is already the 10th in Lagos.
	lagos, err := time.LoadLocation("Africa/Lagos")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	now := mustLocal(t, "UTC", 2025, time.March, 9, 23, 30)
	s := Stats{CurrentStreak: 1, LongestStreak: 1, LastViewedDay: "2025-03-09"}

	got, change := AdvanceStreak(s, now, lagos)
	if change != StreakContinued || got.LastViewedDay != "2025-03-10" {
		t.Fatalf("want continued into 2025-03-10, got %s %+v", change, got)
	}
}

func TestAdvanceStreak_AcrossDSTChange(t *testing.T) {
	// Europe/Berlin springs forward on 2025-03-30.
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	now := time.Date(2025, time.March, 31, 0, 30, 0, 0, berlin)
	s := Stats{CurrentStreak: 2, LongestStreak: 2, LastViewedDay: "2025-03-30"}

	got, change := AdvanceStreak(s, now, berlin)
	if change != StreakContinued || got.CurrentStreak != 3 {
		t.Fatalf("want continued to 3, got %s %+v", change, got)
	}
}

func TestAdvanceStreak_Scenario(t *testing.T) {
	day1 := mustLocal(t, "UTC", 2025, time.June, 1, 9, 0)

	s, _ := AdvanceStreak(Stats{}, day1, time.UTC)
	if s.CurrentStreak != 1 || s.LongestStreak != 1 {
		t.Fatalf("day1: %+v", s)
	}
	s, _ = AdvanceStreak(s, day1.AddDate(0, 0, 1), time.UTC)
	if s.CurrentStreak != 2 || s.LongestStreak != 2 {
		t.Fatalf("day2: %+v", s)
	}
	s, _ = AdvanceStreak(s, day1.AddDate(0, 0, 3), time.UTC)
	if s.CurrentStreak != 1 || s.LongestStreak != 2 {
		t.Fatalf("day4: %+v", s)
	}
}
