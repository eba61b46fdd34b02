package timegrid

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want ClockTime
	}{
		{"00:00", 0},
		{"08:00", 480},
		{"09:45", 585},
		{"23:59", 1439},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseClock(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseClockInvalid(t *testing.T) {
	for _, in := range []string{"", "9:00", "24:00", "12:60", "ab:cd", "12-30", "12:300"} {
		if _, err := ParseClock(in); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Fatalf("ParseClock(%q): want ErrInvalidTimeFormat, got %v", in, err)
		}
	}
}

func TestComputeEndTime(t *testing.T) {
	cases := []struct {
		start string
		dur   int
		want  string
	}{
		{"09:00", 30, "09:30"},
		{"09:45", 30, "10:15"},
		{"10:00", 90, "11:30"},
		{"23:45", 30, "00:15"},
		{"00:00", 0, "00:00"},
	}
	for _, c := range cases {
		got, err := ComputeEndTime(c.start, c.dur)
		if err != nil {
			t.Fatalf("ComputeEndTime(%q, %d): %v", c.start, c.dur, err)
		}
		if got != c.want {
			t.Fatalf("ComputeEndTime(%q, %d) = %q, want %q", c.start, c.dur, got, c.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	p := func(s string) ClockTime {
		ct, err := ParseClock(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		return ct
	}
	cases := []struct {
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"09:00", "10:00", "09:30", "10:30", true},
		{"09:00", "10:00", "08:00", "09:30", true},
		{"09:00", "10:00", "09:15", "09:45", true},
		{"09:00", "10:00", "10:00", "11:00", false}, // back to back
		{"10:00", "11:00", "09:00", "10:00", false},
		{"09:00", "10:00", "11:00", "12:00", false},
	}
	for _, c := range cases {
		got := Overlaps(p(c.aStart), p(c.aEnd), p(c.bStart), p(c.bEnd))
		if got != c.want {
			t.Fatalf("Overlaps(%s-%s, %s-%s) = %v, want %v", c.aStart, c.aEnd, c.bStart, c.bEnd, got, c.want)
		}
	}
}

func TestWeekday(t *testing.T) {
	wd, err := Weekday("2026-03-02")
	if err != nil {
		t.Fatalf("Weekday: %v", err)
	}
	if wd != time.Monday {
		t.Fatalf("Weekday(2026-03-02) = %v, want Monday", wd)
	}
	if _, err := Weekday("02/03/2026"); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Fatalf("want ErrInvalidTimeFormat, got %v", err)
	}
}

func TestAt(t *testing.T) {
	ct, err := ParseClock("14:30")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	got, err := At("2026-03-02", ct)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	want := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("At = %v, want %v", got, want)
	}
}
