package ingest

import "testing"

func TestDeltaFor(t *testing.T) {
	cases := []struct {
		topic string
		price string
		want  string
	}{
		{TopicAppointmentBooked, "", "booked"},
		{TopicAppointmentCancelled, "", "cancelled"},
		{TopicAppointmentNoShow, "", "no_show"},
		{TopicAppointmentCompleted, "45.00", "completed"},
	}
	for _, tc := range cases {
		delta, ok := DeltaFor(tc.topic, tc.price, 30)
		if !ok {
			t.Fatalf("%s: not recognized", tc.topic)
		}
		total := delta.Booked + delta.Cancelled + delta.Completed + delta.NoShows
		if total != 1 {
			t.Fatalf("%s: total increment = %d", tc.topic, total)
		}
	}

	if _, ok := DeltaFor("scheduling.appointment.updated.v1", "", 30); ok {
		t.Fatal("updated events must not count in daily metrics")
	}
}

func TestDeltaForRevenue(t *testing.T) {
	delta, _ := DeltaFor(TopicAppointmentCompleted, "120.00", 45)
	if delta.Revenue != "120.00" {
		t.Fatalf("revenue = %q", delta.Revenue)
	}
	if delta.Minutes != 45 {
		t.Fatalf("minutes = %d", delta.Minutes)
	}

	// Unpriced or malformed completions still count, at zero revenue.
	delta, _ = DeltaFor(TopicAppointmentCompleted, "", 45)
	if delta.Revenue != "" || delta.Completed != 1 {
		t.Fatalf("unpriced completion = %+v", delta)
	}
	delta, _ = DeltaFor(TopicAppointmentCompleted, "free", 45)
	if delta.Revenue != "" {
		t.Fatalf("malformed price accepted: %+v", delta)
	}

	delta, _ = DeltaFor(TopicAppointmentBooked, "45.00", 45)
	if delta.Revenue != "" {
		t.Fatalf("booking counted revenue: %+v", delta)
	}
	if delta.Minutes != 0 {
		t.Fatalf("booking counted minutes: %+v", delta)
	}
}
