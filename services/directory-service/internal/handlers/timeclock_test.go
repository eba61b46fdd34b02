package handlers

import (
	"testing"
	"time"

	"github.com/glowdesk/glowdesk/services/directory-service/internal/storage"
)

func TestWithinSchedule(t *testing.T) {
	entries := []storage.ScheduleEntry{
		{Weekday: 1, StartMinute: 8 * 60, EndMinute: 18 * 60, IsActive: true},
		{Weekday: 6, StartMinute: 9 * 60, EndMinute: 13 * 60, IsActive: false},
	}

	// 2026-03-02 is a Monday.
	monday := func(hour, min int) time.Time {
		return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
	}

	if !withinSchedule(entries, monday(8, 0)) {
		t.Fatal("window start should be inside")
	}
	if !withinSchedule(entries, monday(17, 59)) {
		t.Fatal("last minute should be inside")
	}
	if withinSchedule(entries, monday(18, 0)) {
		t.Fatal("window end is exclusive")
	}
	if withinSchedule(entries, monday(7, 59)) {
		t.Fatal("before the window should be outside")
	}

	// Saturday has only an inactive entry.
	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	if withinSchedule(entries, saturday) {
		t.Fatal("inactive day should be outside")
	}

	if withinSchedule(nil, monday(10, 0)) {
		t.Fatal("no schedule should be outside")
	}
}

func TestClinicLocal(t *testing.T) {
	instant := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)

	local := clinicLocal(instant, "America/Sao_Paulo")
	if local.Hour() != 0 {
		t.Fatalf("local hour = %d, want 0", local.Hour())
	}
	if !local.Equal(instant) {
		t.Fatal("conversion changed the instant")
	}

	local = clinicLocal(instant, "Not/AZone")
	if local.Location() != time.UTC {
		t.Fatalf("fallback location = %v, want UTC", local.Location())
	}
}
