package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glowdesk/glowdesk/libs/eventx"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/availability"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/timegrid"
)

// memoryStore backs the service with maps. Transactions are not isolated;
// the tests exercise lifecycle logic, not storage.
type memoryStore struct {
	appointments map[string]model.Appointment
	schedules    map[string]availability.Window // professional|weekday
	events       []eventx.Event
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		appointments: map[string]model.Appointment{},
		schedules:    map[string]availability.Window{},
	}
}

func (m *memoryStore) setSchedule(professionalID string, weekday time.Weekday, start, end string) {
	m.schedules[professionalID+"|"+weekday.String()] = availability.Window{
		Start: mustClock(start), End: mustClock(end),
	}
}

func (m *memoryStore) WithSlotLock(ctx context.Context, _ string, fn func(tx StoreTx) error) error {
	return fn((*memoryTx)(m))
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(tx StoreTx) error) error {
	return fn((*memoryTx)(m))
}

func (m *memoryStore) Get(ctx context.Context, id string) (model.Appointment, error) {
	return (*memoryTx)(m).Get(ctx, id)
}

func (m *memoryStore) ListByDate(_ context.Context, date, professionalID string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range m.appointments {
		if a.Date != date {
			continue
		}
		if professionalID != "" && a.ProfessionalID != professionalID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryStore) ListByClient(_ context.Context, clientID string, _ int) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range m.appointments {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memoryTx memoryStore

func (m *memoryTx) ListActive(_ context.Context, date, professionalID, excludeID string) ([]availability.BusyInterval, error) {
	var out []availability.BusyInterval
	for _, a := range m.appointments {
		if a.Date != date || !a.Status.Blocks() {
			continue
		}
		if professionalID != "" && a.ProfessionalID != "" && a.ProfessionalID != professionalID {
			continue
		}
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		out = append(out, availability.BusyInterval{
			AppointmentID: a.ID,
			Start:         mustClock(a.StartTime),
			End:           mustClock(a.EndTime),
		})
	}
	return out, nil
}

func (m *memoryTx) ActiveWindow(_ context.Context, professionalID string, weekday time.Weekday) (availability.Window, bool, error) {
	w, ok := m.schedules[professionalID+"|"+weekday.String()]
	return w, ok, nil
}

func (m *memoryTx) Get(_ context.Context, id string) (model.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (m *memoryTx) Insert(_ context.Context, appt *model.Appointment) error {
	m.appointments[appt.ID] = *appt
	return nil
}

func (m *memoryTx) Update(_ context.Context, appt model.Appointment) error {
	if _, ok := m.appointments[appt.ID]; !ok {
		return ErrNotFound
	}
	m.appointments[appt.ID] = appt
	return nil
}

func (m *memoryTx) SetStatus(_ context.Context, id string, status model.Status, reason string, at time.Time) error {
	a, ok := m.appointments[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.CancellationReason = reason
	a.UpdatedAt = at
	m.appointments[id] = a
	return nil
}

func (m *memoryTx) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := m.appointments[id]; !ok {
		return false, nil
	}
	delete(m.appointments, id)
	return true, nil
}

func (m *memoryTx) Emit(_ context.Context, evt eventx.Event) error {
	m.events = append(m.events, evt)
	return nil
}

type memoryDirectory struct {
	clients       map[string]bool
	professionals map[string]bool
	services      map[string]CatalogService
	serviceErr    error
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{
		clients:       map[string]bool{"client-1": true},
		professionals: map[string]bool{"pro-1": true},
		services: map[string]CatalogService{
			"svc-cut": {ID: "svc-cut", Name: "Haircut", DurationMinutes: 30, Price: "45.00", Active: true},
			"svc-color": {ID: "svc-color", Name: "Coloring", DurationMinutes: 90, Price: "120.00", Active: true},
		},
	}
}

func (d *memoryDirectory) ClientExists(_ context.Context, id string) (bool, error) {
	return d.clients[id], nil
}

func (d *memoryDirectory) ProfessionalExists(_ context.Context, id string) (bool, error) {
	return d.professionals[id], nil
}

func (d *memoryDirectory) GetService(_ context.Context, id string) (CatalogService, bool, error) {
	if d.serviceErr != nil {
		return CatalogService{}, false, d.serviceErr
	}
	svc, ok := d.services[id]
	return svc, ok, nil
}

func mustClock(s string) timegrid.ClockTime {
	ct, err := timegrid.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return ct
}

const monday = "2026-03-02"

func newTestService(store *memoryStore) *Service {
	return newTestServiceWith(store, newMemoryDirectory())
}

func newTestServiceWith(store *memoryStore, dir *memoryDirectory) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, dir, logger, availability.DefaultSlotConfig())
}

func countEvents(events []eventx.Event, eventType string) int {
	n := 0
	for _, e := range events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func TestCreateBooksAndEmits(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	appt, err := svc.Create(context.Background(), CreateInput{
		ClientID:       "client-1",
		ProfessionalID: "pro-1",
		ServiceID:      "svc-cut",
		Date:           monday,
		StartTime:      "09:45",
		ActorID:        "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if appt.EndTime != "10:15" {
		t.Fatalf("end time = %s, want 10:15", appt.EndTime)
	}
	if appt.Status != model.StatusScheduled {
		t.Fatalf("status = %s, want scheduled", appt.Status)
	}
	if appt.Type != model.TypeService || appt.Priority != model.PriorityNormal {
		t.Fatalf("defaults not applied: type=%s priority=%s", appt.Type, appt.Priority)
	}
	if got := countEvents(store.events, EventAppointmentBooked); got != 1 {
		t.Fatalf("booked events = %d, want 1", got)
	}
	if got := countEvents(store.events, EventReminderRequested); got != 3 {
		t.Fatalf("reminder requests = %d, want 3", got)
	}
}

func TestCreateRejectsConflict(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	in := CreateInput{
		ClientID:       "client-1",
		ProfessionalID: "pro-1",
		ServiceID:      "svc-cut",
		Date:           monday,
		StartTime:      "10:00",
		ActorID:        "user-1",
	}
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	in.StartTime = "10:15"
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	// back to back is fine
	in.StartTime = "10:30"
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("back-to-back Create: %v", err)
	}
}

func TestCreateRequiresActor(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateInput{
		ClientID:  "client-1",
		ServiceID: "svc-cut",
		Date:      monday,
		StartTime: "10:00",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestCreateUnknownReferences(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	base := CreateInput{
		ClientID:       "client-1",
		ProfessionalID: "pro-1",
		ServiceID:      "svc-cut",
		Date:           monday,
		StartTime:      "10:00",
		ActorID:        "user-1",
	}

	in := base
	in.ClientID = "nope"
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown client: want ErrNotFound, got %v", err)
	}
	in = base
	in.ProfessionalID = "nope"
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown professional: want ErrNotFound, got %v", err)
	}
	in = base
	in.ServiceID = "nope"
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown service: want ErrNotFound, got %v", err)
	}
}

func TestCreateBadTime(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateInput{
		ClientID:  "client-1",
		ServiceID: "svc-cut",
		Date:      monday,
		StartTime: "25:00",
		ActorID:   "user-1",
	})
	if !errors.Is(err, timegrid.ErrInvalidTimeFormat) {
		t.Fatalf("want ErrInvalidTimeFormat, got %v", err)
	}
}

func TestUpdateSkipsAvailabilityCheck(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	first, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "14:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Move the second onto the first's slot; Update allows it.
	start := "10:00"
	got, err := svc.Update(context.Background(), second.ID, UpdateInput{StartTime: &start, ActorID: "user-1"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.StartTime != "10:00" || got.EndTime != "10:30" {
		t.Fatalf("updated interval = %s-%s, want 10:00-10:30", got.StartTime, got.EndTime)
	}
	if got.StartTime != first.StartTime {
		t.Fatal("expected overlap with first appointment")
	}
}

func TestUpdateRecomputesEndOnServiceChange(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	appt, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	serviceID := "svc-color"
	got, err := svc.Update(context.Background(), appt.ID, UpdateInput{ServiceID: &serviceID, ActorID: "user-1"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.DurationMinutes != 90 || got.EndTime != "11:30" {
		t.Fatalf("got duration=%d end=%s, want 90 / 11:30", got.DurationMinutes, got.EndTime)
	}
}

func TestCancelTwice(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	appt, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), appt.ID, "client called", "user-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != model.StatusCancelled || cancelled.CancellationReason != "client called" {
		t.Fatalf("got %s / %q", cancelled.Status, cancelled.CancellationReason)
	}
	if _, err := svc.Cancel(context.Background(), appt.ID, "again", "user-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second cancel: want ErrInvalidTransition, got %v", err)
	}
}

func TestCancelledSlotReopens(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	in := CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	}
	appt, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), appt.ID, "freed", "user-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("rebooking a cancelled slot: %v", err)
	}
}

func TestConfirmCompleteFlow(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	appt, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), appt.ID, "user-1"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	done, err := svc.Complete(context.Background(), appt.ID, "user-1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != model.StatusCompleted {
		t.Fatalf("status = %s, want completed", done.Status)
	}
	if _, err := svc.Confirm(context.Background(), appt.ID, "user-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("confirm after complete: want ErrInvalidTransition, got %v", err)
	}
}

func TestCompleteWithoutPriceLookup(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	dir := newMemoryDirectory()
	svc := newTestServiceWith(store, dir)

	appt, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A directory outage must not block completion; the event just
	// goes out unpriced.
	dir.serviceErr = errors.New("directory unavailable")
	done, err := svc.Complete(context.Background(), appt.ID, "user-1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != model.StatusCompleted {
		t.Fatalf("status = %s, want completed", done.Status)
	}

	for _, evt := range store.events {
		if evt.EventType != EventAppointmentCompleted {
			continue
		}
		var payload struct {
			ServicePrice string `json:"service_price"`
		}
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if payload.ServicePrice != "" {
			t.Fatalf("service_price = %q, want empty", payload.ServicePrice)
		}
		return
	}
	t.Fatal("no completed event emitted")
}

func TestReschedule(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	orig, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	repl, err := svc.Reschedule(context.Background(), orig.ID, monday, "14:00", "user-2")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if repl.ID == orig.ID {
		t.Fatal("replacement reused the original id")
	}
	if repl.RescheduledFrom != orig.ID {
		t.Fatalf("rescheduled_from = %q, want %q", repl.RescheduledFrom, orig.ID)
	}
	if repl.Status != model.StatusScheduled || repl.StartTime != "14:00" || repl.EndTime != "14:30" {
		t.Fatalf("replacement = %s %s-%s", repl.Status, repl.StartTime, repl.EndTime)
	}
	if repl.CreatedBy != "user-2" {
		t.Fatalf("created_by = %q, want user-2", repl.CreatedBy)
	}

	stored, err := svc.Get(context.Background(), orig.ID)
	if err != nil {
		t.Fatalf("Get original: %v", err)
	}
	if stored.Status != model.StatusRescheduled {
		t.Fatalf("original status = %s, want rescheduled", stored.Status)
	}
	if stored.CancellationReason != "rescheduled to "+monday+" 14:00" {
		t.Fatalf("original cancellation_reason = %q", stored.CancellationReason)
	}

	all, err := svc.ListByDate(context.Background(), monday, "pro-1")
	if err != nil {
		t.Fatalf("ListByDate: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("appointments on date = %d, want 2 (original + replacement)", len(all))
	}
	if got := countEvents(store.events, EventAppointmentRescheduled); got != 1 {
		t.Fatalf("rescheduled events = %d, want 1", got)
	}
	if got := countEvents(store.events, EventReminderRequested); got != 6 {
		t.Fatalf("reminder requests = %d, want 6 (booking + reschedule)", got)
	}
}

func TestRescheduleWithinOwnSlot(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	orig, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Shift by 15 minutes; still overlaps the original, which must not
	// block its own reschedule.
	if _, err := svc.Reschedule(context.Background(), orig.ID, monday, "10:15", "user-1"); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
}

func TestRescheduleConflict(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	orig, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "14:00", ActorID: "user-1",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Reschedule(context.Background(), orig.ID, monday, "14:15", "user-1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	// Conflict keeps the original intact.
	stored, err := svc.Get(context.Background(), orig.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != model.StatusScheduled {
		t.Fatalf("original status = %s, want scheduled after failed reschedule", stored.Status)
	}
}

func TestRescheduleCancelled(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	orig, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), orig.ID, "", "user-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.Reschedule(context.Background(), orig.ID, monday, "14:00", "user-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	appt, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "10:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Remove(context.Background(), appt.ID, "user-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := svc.Get(context.Background(), appt.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after remove, got %v", err)
	}
	if err := svc.Remove(context.Background(), appt.ID, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removing twice: want ErrNotFound, got %v", err)
	}
}

func TestReminderSendTimes(t *testing.T) {
	store := newMemoryStore()
	store.setSchedule("pro-1", time.Monday, "08:00", "18:00")
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateInput{
		ClientID: "client-1", ProfessionalID: "pro-1", ServiceID: "svc-cut",
		Date: monday, StartTime: "14:00", ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	startAt := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	want := map[string]time.Time{
		ReminderConfirmation: startAt.Add(-24 * time.Hour),
		Reminder24h:          startAt.Add(-24 * time.Hour),
		Reminder2h:           startAt.Add(-2 * time.Hour),
	}
	seen := map[string]bool{}
	for _, evt := range store.events {
		if evt.EventType != EventReminderRequested {
			continue
		}
		var p reminderPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			t.Fatalf("decode reminder payload: %v", err)
		}
		wantAt, ok := want[p.Kind]
		if !ok {
			t.Fatalf("unexpected reminder kind %q", p.Kind)
		}
		if !p.SendAt.Equal(wantAt) {
			t.Fatalf("kind %s send_at = %v, want %v", p.Kind, p.SendAt, wantAt)
		}
		seen[p.Kind] = true
	}
	if len(seen) != 3 {
		t.Fatalf("saw kinds %v, want all three", seen)
	}
}
