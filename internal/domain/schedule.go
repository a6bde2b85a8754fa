package domain

import (
	"fmt"
	"time"
)

// ClockMode selects which wall clock a user's daily time is compared against.
type ClockMode string

const (
	// ClockUser compares against the current time in the user's own timezone.
	ClockUser ClockMode = "user"
	// ClockServer compares against the server's local wall clock regardless of the stored timezone.
	ClockServer ClockMode = "server"
)

// ParseClockMode validates a configured mode.
func ParseClockMode(s string) (ClockMode, error) {
	switch ClockMode(s) {
	case ClockUser, ClockServer:
		return ClockMode(s), nil
	default:
		return "", fmt.Errorf("unknown clock mode %q (want user|server)", s)
	}
}

// IsDue reports whether a user with prefs should receive the daily drop at now.
// A missing or malformed DailyTime is never due.
func IsDue(p Preferences, now time.Time, mode ClockMode, fallback *time.Location) bool {
	if !p.NotificationsEnabled {
		return false
	}
	c, err := ParseClock(p.DailyTime)
	if err != nil {
		return false
	}
	ref := now.Local()
	if mode == ClockUser {
		ref = now.In(ResolveLocation(p.Timezone, fallback))
	}
	return c.Matches(ref)
}

// AlreadyNotified reports whether the last notification went out during the minute of now.
func AlreadyNotified(s Stats, now time.Time) bool {
	if s.LastNotificationSent == nil {
		return false
	}
	return s.LastNotificationSent.UTC().Truncate(time.Minute).Equal(now.UTC().Truncate(time.Minute))
}
