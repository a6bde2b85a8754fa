package domain

import "time"

// StreakChange describes what AdvanceStreak did.
type StreakChange int

const (
	StreakUnchanged StreakChange = iota // activity already recorded today
	StreakContinued                     // last activity was yesterday
	StreakReset                         // first activity, or a gap of two days or more
)

func (c StreakChange) String() string {
	switch c {
	case StreakContinued:
		return "continued"
	case StreakReset:
		return "reset"
	default:
		return "unchanged"
	}
}

// Advanced reports whether the streak counters were written.
func (c StreakChange) Advanced() bool { return c != StreakUnchanged }

// Today returns the calendar day of now in loc.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DayLayout)
}

// dayBefore returns the calendar day preceding now's day in loc.
// Built from noon so DST shifts never move it across midnight.
func dayBefore(now time.Time, loc *time.Location) string {
	l := now.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day()-1, 12, 0, 0, 0, loc).Format(DayLayout)
}

// AdvanceStreak applies one day of activity at now, with day boundaries taken in loc.
// It is a no-op when activity was already recorded on the same day.
func AdvanceStreak(s Stats, now time.Time, loc *time.Location) (Stats, StreakChange) {
	today := Today(now, loc)
	if s.LastViewedDay == today {
		return s, StreakUnchanged
	}

	change := StreakReset
	if s.LastViewedDay != "" && s.LastViewedDay == dayBefore(now, loc) {
		s.CurrentStreak++
		change = StreakContinued
	} else {
		s.CurrentStreak = 1
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastViewedDay = today
	return s, change
}
