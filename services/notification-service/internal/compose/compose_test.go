package compose

import (
	"strings"
	"testing"
)

func TestBuildConfirmation(t *testing.T) {
	msg := Build(Input{
		Kind:        "confirmation",
		ClientName:  "Ana",
		ServiceName: "Haircut",
		Date:        "2026-03-02",
		StartTime:   "14:00",
		ClinicName:  "GlowDesk Studio",
	})
	if msg.Subject != "Please confirm your appointment" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"Ana", "Haircut", "2026-03-02 at 14:00", "[GlowDesk Studio]"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body %q missing %q", msg.Body, want)
		}
	}
}

func TestBuildUnknownKindFallsBack(t *testing.T) {
	msg := Build(Input{Kind: "reminder_24h", Date: "2026-03-02"})
	if msg.Subject != "Appointment reminder" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "your appointment") {
		t.Fatalf("body %q missing service fallback", msg.Body)
	}
	if strings.Contains(msg.Body, "[") {
		t.Fatalf("body %q has clinic tag without clinic name", msg.Body)
	}
}
