package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidClock    = errors.New("invalid clock time")
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// DayLayout formats calendar days stored in Stats.LastViewedDay.
const DayLayout = "2006-01-02"

// Clock is a wall-clock minute of the day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a strict 24-hour "HH:MM" string. No whitespace, signs or single digits.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, ok1 := twoDigits(s[0:2])
	m, ok2 := twoDigits(s[3:5])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// String returns HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Matches reports whether t falls in the same hour and minute as c.
func (c Clock) Matches(t time.Time) bool {
	return t.Hour() == c.Hour && t.Minute() == c.Minute
}

// ValidateTZ checks that the tz is a valid IANA location and returns its canonical name.
func ValidateTZ(tz string) (string, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTimezone, err)
	}
	return loc.String(), nil
}

// ResolveLocation loads tz, falling back to fallback (or UTC) when it is empty or unknown.
func ResolveLocation(tz string, fallback *time.Location) *time.Location {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	if fallback != nil {
		return fallback
	}
	return time.UTC
}

// LocalizeTime formats t in user's timezone as HH:MM.
func LocalizeTime(t time.Time, tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return t.In(loc).Format("15:04"), nil
}
