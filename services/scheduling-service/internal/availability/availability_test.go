package availability

import (
	"context"
	"testing"
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/timegrid"
)

type memorySource struct {
	busy      map[string][]BusyInterval // date -> intervals, all professionals
	byPro     map[string][]BusyInterval // date|professional -> intervals
	schedules map[string]Window         // professional|weekday -> window
}

func newMemorySource() *memorySource {
	return &memorySource{
		busy:      map[string][]BusyInterval{},
		byPro:     map[string][]BusyInterval{},
		schedules: map[string]Window{},
	}
}

func (m *memorySource) addAppointment(date, professionalID, id, start, end string) {
	b := BusyInterval{AppointmentID: id, Start: mustClock(start), End: mustClock(end)}
	m.busy[date] = append(m.busy[date], b)
	if professionalID != "" {
		key := date + "|" + professionalID
		m.byPro[key] = append(m.byPro[key], b)
	}
}

func (m *memorySource) setSchedule(professionalID string, weekday time.Weekday, start, end string) {
	m.schedules[professionalID+"|"+weekday.String()] = Window{Start: mustClock(start), End: mustClock(end)}
}

func (m *memorySource) ListActive(_ context.Context, date, professionalID, excludeID string) ([]BusyInterval, error) {
	src := m.busy[date]
	if professionalID != "" {
		src = m.byPro[date+"|"+professionalID]
	}
	var out []BusyInterval
	for _, b := range src {
		if excludeID != "" && b.AppointmentID == excludeID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memorySource) ActiveWindow(_ context.Context, professionalID string, weekday time.Weekday) (Window, bool, error) {
	w, ok := m.schedules[professionalID+"|"+weekday.String()]
	return w, ok, nil
}

func mustClock(s string) timegrid.ClockTime {
	ct, err := timegrid.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return ct
}

// 2026-03-02 is a Monday.
const monday = "2026-03-02"

func TestIsAvailableConflicts(t *testing.T) {
	src := newMemorySource()
	src.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	src.addAppointment(monday, "pro-1", "appt-1", "10:00", "11:00")
	checker := NewChecker(src, src)

	cases := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"overlapping", "10:30", "11:30", false},
		{"contained", "10:15", "10:45", false},
		{"back to back after", "11:00", "12:00", true},
		{"back to back before", "09:00", "10:00", true},
		{"free slot", "14:00", "15:00", true},
		{"outside working hours", "07:00", "08:00", false},
		{"past closing", "17:30", "18:30", false},
	}
	for _, c := range cases {
		q := Query{Date: monday, Start: mustClock(c.start), End: mustClock(c.end), ProfessionalID: "pro-1"}
		got, err := checker.IsAvailable(context.Background(), q)
		if err != nil {
			t.Fatalf("%s: IsAvailable: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s: IsAvailable = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIsAvailableNonWorkingDay(t *testing.T) {
	src := newMemorySource()
	src.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	checker := NewChecker(src, src)

	// 2026-03-07 is a Saturday, no schedule row.
	q := Query{Date: "2026-03-07", Start: mustClock("10:00"), End: mustClock("11:00"), ProfessionalID: "pro-1"}
	got, err := checker.IsAvailable(context.Background(), q)
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if got {
		t.Fatal("expected unavailable on a non-working day")
	}
}

func TestIsAvailableWithoutProfessional(t *testing.T) {
	src := newMemorySource()
	src.addAppointment(monday, "pro-1", "appt-1", "10:00", "11:00")
	src.addAppointment(monday, "", "appt-2", "13:00", "14:00")
	checker := NewChecker(src, src)

	// Without a professional every appointment on the date blocks.
	cases := []struct {
		start, end string
		want       bool
	}{
		{"10:30", "11:30", false},
		{"13:30", "14:30", false},
		{"11:00", "12:00", true},
	}
	for _, c := range cases {
		q := Query{Date: monday, Start: mustClock(c.start), End: mustClock(c.end)}
		got, err := checker.IsAvailable(context.Background(), q)
		if err != nil {
			t.Fatalf("IsAvailable: %v", err)
		}
		if got != c.want {
			t.Fatalf("IsAvailable(%s-%s) = %v, want %v", c.start, c.end, got, c.want)
		}
	}
}

func TestIsAvailableExcludesAppointment(t *testing.T) {
	src := newMemorySource()
	src.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	src.addAppointment(monday, "pro-1", "appt-1", "10:00", "11:00")
	checker := NewChecker(src, src)

	q := Query{
		Date:                 monday,
		Start:                mustClock("10:00"),
		End:                  mustClock("11:00"),
		ProfessionalID:       "pro-1",
		ExcludeAppointmentID: "appt-1",
	}
	got, err := checker.IsAvailable(context.Background(), q)
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if !got {
		t.Fatal("expected the excluded appointment not to block its own slot")
	}
}

func TestSlotsEmptyDay(t *testing.T) {
	src := newMemorySource()
	src.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	gen := NewGenerator(NewChecker(src, src), src, DefaultSlotConfig())

	slots, err := gen.Slots(context.Background(), monday, "pro-1", 30)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots.Available) != 20 {
		t.Fatalf("got %d available slots, want 20", len(slots.Available))
	}
	if len(slots.Busy) != 0 {
		t.Fatalf("got %d busy slots, want 0", len(slots.Busy))
	}
	if slots.Available[0] != "08:00" || slots.Available[19] != "17:30" {
		t.Fatalf("slot bounds = %s .. %s, want 08:00 .. 17:30", slots.Available[0], slots.Available[19])
	}
}

func TestSlotsClassifiesBusy(t *testing.T) {
	src := newMemorySource()
	src.setSchedule("pro-1", time.Monday, "09:00", "12:00")
	src.addAppointment(monday, "pro-1", "appt-1", "10:00", "10:30")
	gen := NewGenerator(NewChecker(src, src), src, DefaultSlotConfig())

	slots, err := gen.Slots(context.Background(), monday, "pro-1", 30)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	wantAvailable := []string{"09:00", "09:30", "10:30", "11:00", "11:30"}
	wantBusy := []string{"10:00"}
	if len(slots.Available) != len(wantAvailable) {
		t.Fatalf("available = %v, want %v", slots.Available, wantAvailable)
	}
	for i, s := range wantAvailable {
		if slots.Available[i] != s {
			t.Fatalf("available = %v, want %v", slots.Available, wantAvailable)
		}
	}
	if len(slots.Busy) != 1 || slots.Busy[0] != wantBusy[0] {
		t.Fatalf("busy = %v, want %v", slots.Busy, wantBusy)
	}
}

func TestSlotsLongerDuration(t *testing.T) {
	src := newMemorySource()
	src.setSchedule("pro-1", time.Monday, "09:00", "11:00")
	gen := NewGenerator(NewChecker(src, src), src, DefaultSlotConfig())

	// 60-minute service on a 30-minute grid: last start is 10:00.
	slots, err := gen.Slots(context.Background(), monday, "pro-1", 60)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	want := []string{"09:00", "09:30", "10:00"}
	if len(slots.Available) != len(want) {
		t.Fatalf("available = %v, want %v", slots.Available, want)
	}
	for i, s := range want {
		if slots.Available[i] != s {
			t.Fatalf("available = %v, want %v", slots.Available, want)
		}
	}
}

func TestSlotsNonWorkingDay(t *testing.T) {
	src := newMemorySource()
	src.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	gen := NewGenerator(NewChecker(src, src), src, DefaultSlotConfig())

	slots, err := gen.Slots(context.Background(), "2026-03-07", "pro-1", 30)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots.Available) != 0 || len(slots.Busy) != 0 {
		t.Fatalf("expected no slots on a non-working day, got %v / %v", slots.Available, slots.Busy)
	}
}

func TestSlotsFallbackWindow(t *testing.T) {
	src := newMemorySource()
	gen := NewGenerator(NewChecker(src, src), src, DefaultSlotConfig())

	// No professional named: the configured clinic window applies.
	slots, err := gen.Slots(context.Background(), monday, "", 30)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots.Available) != 20 {
		t.Fatalf("got %d available slots, want 20", len(slots.Available))
	}
}
