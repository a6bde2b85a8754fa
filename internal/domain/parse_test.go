package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	good := map[string]Clock{
		"00:00": {0, 0},
		"09:05": {9, 5},
		"23:59": {23, 59},
	}
	for in, want := range good {
		got, err := ParseClock(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: want %+v, got %+v", in, want, got)
		}
		if got.String() != in {
			t.Fatalf("%q: round trip gave %q", in, got.String())
		}
	}

	for _, in := range []string{"", "9:", "9:00", "24:00", "12:60", "ab:cd", " 9:00", "09:00 ", "-1:00", "09-00"} {
		if _, err := ParseClock(in); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("%q: want ErrInvalidClock, got %v", in, err)
		}
	}
}

func TestValidateTZ(t *testing.T) {
	got, err := ValidateTZ("Africa/Lagos")
	if err != nil || got != "Africa/Lagos" {
		t.Fatalf("want Africa/Lagos, got %q %v", got, err)
	}
	if _, err := ValidateTZ("Nowhere/Place"); !errors.Is(err, ErrInvalidTimezone) {
		t.Fatalf("want ErrInvalidTimezone, got %v", err)
	}
	if _, err := ValidateTZ("  "); !errors.Is(err, ErrInvalidTimezone) {
		t.Fatalf("want ErrInvalidTimezone for blank, got %v", err)
	}
}

func TestResolveLocation(t *testing.T) {
	if loc := ResolveLocation("", nil); loc != time.UTC {
		t.Fatalf("want UTC, got %s", loc)
	}
	if loc := ResolveLocation("Asia/Tokyo", time.UTC); loc.String() != "Asia/Tokyo" {
		t.Fatalf("want Asia/Tokyo, got %s", loc)
	}
}

func TestLocalizeTime(t *testing.T) {
	at := time.Date(2025, time.March, 10, 23, 30, 0, 0, time.UTC)
	got, err := LocalizeTime(at, "Africa/Lagos")
	if err != nil || got != "00:30" {
		t.Fatalf("want 00:30, got %q %v", got, err)
	}
	if _, err := LocalizeTime(at, "Nowhere/Place"); err == nil {
		t.Fatalf("want error for unknown zone")
	}
}

func TestParseTheme(t *testing.T) {
	for _, th := range AllThemes() {
		got, err := ParseTheme(th.String())
		if err != nil || got != th {
			t.Fatalf("%s: got %v %v", th, got, err)
		}
	}
	if _, err := ParseTheme("sports"); !errors.Is(err, ErrUnknownTheme) {
		t.Fatalf("want ErrUnknownTheme, got %v", err)
	}
}

func TestQuizStatsRecord(t *testing.T) {
	now := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	var q QuizStats
	for i := 1; i <= 12; i++ {
		q = q.Record(NewQuizResult(i%6, 5, ThemeNature, now))
	}
	if q.TotalQuizzes != 12 {
		t.Fatalf("total quizzes: %d", q.TotalQuizzes)
	}
	if len(q.RecentScores) != RecentScoresCap {
		t.Fatalf("recent scores not capped: %d", len(q.RecentScores))
	}
	// results 3..12 remain; the first kept has score 3%6 = 3
	if q.RecentScores[0].Score != 3 {
		t.Fatalf("oldest kept score: %d", q.RecentScores[0].Score)
	}
	if q.BestScore != 5 {
		t.Fatalf("best: %d", q.BestScore)
	}
	// scores: 1,2,3,4,5,0,1,2,3,4,5,0 -> 30/12 = 2.5 -> 3
	if q.AverageScore() != 3 {
		t.Fatalf("average: %d", q.AverageScore())
	}
}

func TestNewQuizResultPercentage(t *testing.T) {
	if got := NewQuizResult(2, 3, ThemeOrigins, time.Now()).Percentage; got != 67 {
		t.Fatalf("2/3: %d", got)
	}
	if got := NewQuizResult(0, 0, ThemeOrigins, time.Now()).Percentage; got != 0 {
		t.Fatalf("0/0: %d", got)
	}
}
