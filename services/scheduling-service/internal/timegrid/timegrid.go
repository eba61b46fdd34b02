// Package timegrid does wall-clock arithmetic on "HH:MM" strings and
// "YYYY-MM-DD" dates. All times are minutes-of-day with no timezone
// attached; additions wrap within a single day.
package timegrid

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeFormat is returned when a time string is not "HH:MM" or a
// date string is not "YYYY-MM-DD".
var ErrInvalidTimeFormat = errors.New("invalid time format")

const minutesPerDay = 24 * 60

// ClockTime is a time of day expressed as minutes since midnight.
type ClockTime int

// ParseClock parses "HH:MM" into a ClockTime.
func ParseClock(s string) (ClockTime, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	h, err := atoi2(s[0:2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	m, err := atoi2(s[3:5])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return ClockTime(h*60 + m), nil
}

func atoi2(s string) (int, error) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, errors.New("not a digit")
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// String formats the ClockTime back to "HH:MM".
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// AddMinutes adds m minutes, wrapping within a 24-hour day.
func (t ClockTime) AddMinutes(m int) ClockTime {
	n := (int(t) + m) % minutesPerDay
	if n < 0 {
		n += minutesPerDay
	}
	return ClockTime(n)
}

// ComputeEndTime returns start plus duration as "HH:MM". The result wraps
// past midnight, so "23:45" plus 30 yields "00:15".
func ComputeEndTime(start string, durationMinutes int) (string, error) {
	t, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	return t.AddMinutes(durationMinutes).String(), nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd ClockTime) bool {
	return aStart < bEnd && bStart < aEnd
}

// ParseDate parses "YYYY-MM-DD" as a calendar date with no timezone.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return d, nil
}

// Weekday returns the day of week for a "YYYY-MM-DD" date.
func Weekday(date string) (time.Weekday, error) {
	d, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return d.Weekday(), nil
}

// At combines a date and a clock time into a UTC instant. It is used to
// anchor reminder offsets; the clinic's wall clock is treated as UTC for
// that purpose.
func At(date string, t ClockTime) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(t) * time.Minute), nil
}
