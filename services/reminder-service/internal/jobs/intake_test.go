package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestBuildJob(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	req := ReminderRequest{
		AppointmentID: "appt-1",
		ClientID:      "client-1",
		ServiceID:     "svc-cut",
		Kind:          "reminder_24h",
		Date:          "2026-03-02",
		StartTime:     "14:00",
		SendAt:        now.Add(26 * time.Hour),
	}
	job, err := BuildJob(req, now)
	if err != nil {
		t.Fatalf("BuildJob: %v", err)
	}
	if job.IdempotencyKey != "appt-1|reminder_24h" {
		t.Fatalf("idempotency key = %q", job.IdempotencyKey)
	}
	if !job.SendAt.Equal(req.SendAt) {
		t.Fatalf("send at = %v", job.SendAt)
	}
}

func TestBuildJobDropsPastSendTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := ReminderRequest{
		AppointmentID: "appt-1",
		ClientID:      "client-1",
		Kind:          "reminder_2h",
		SendAt:        now.Add(-time.Minute),
	}
	if _, err := BuildJob(req, now); !errors.Is(err, ErrDropped) {
		t.Fatalf("err = %v, want ErrDropped", err)
	}
	// A send time exactly at now has already passed.
	req.SendAt = now
	if _, err := BuildJob(req, now); !errors.Is(err, ErrDropped) {
		t.Fatalf("err = %v, want ErrDropped", err)
	}
}

func TestCancelTarget(t *testing.T) {
	// Rescheduled events name the replacement appointment; the original
	// being superseded is rescheduled_from, and its reminders are the
	// ones to void.
	ev := AppointmentEvent{AppointmentID: "appt-new", RescheduledFrom: "appt-old"}
	if got := CancelTarget(TopicAppointmentRescheduled, ev); got != "appt-old" {
		t.Fatalf("rescheduled target = %q, want appt-old", got)
	}

	ev = AppointmentEvent{AppointmentID: "appt-1"}
	if got := CancelTarget(TopicAppointmentCancelled, ev); got != "appt-1" {
		t.Fatalf("cancelled target = %q, want appt-1", got)
	}
	if got := CancelTarget(TopicAppointmentNoShow, ev); got != "appt-1" {
		t.Fatalf("no-show target = %q, want appt-1", got)
	}

	// A malformed rescheduled event without the link yields no target.
	if got := CancelTarget(TopicAppointmentRescheduled, AppointmentEvent{AppointmentID: "appt-new"}); got != "" {
		t.Fatalf("target = %q, want empty", got)
	}
}

func TestBuildJobRejectsMissingFields(t *testing.T) {
	now := time.Now()
	cases := []ReminderRequest{
		{ClientID: "c", Kind: "reminder_2h", SendAt: now.Add(time.Hour)},
		{AppointmentID: "a", Kind: "reminder_2h", SendAt: now.Add(time.Hour)},
		{AppointmentID: "a", ClientID: "c", SendAt: now.Add(time.Hour)},
		{AppointmentID: "a", ClientID: "c", Kind: "reminder_2h"},
	}
	for i, req := range cases {
		if _, err := BuildJob(req, now); err == nil || errors.Is(err, ErrDropped) {
			t.Fatalf("case %d: err = %v, want validation error", i, err)
		}
	}
}
