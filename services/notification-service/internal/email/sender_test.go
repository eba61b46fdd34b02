package email

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	cfg := Config{
		From:     "no-reply@glowdesk.local",
		FromName: "GlowDesk Studio",
		ReplyTo:  "desk@glowdesk.local",
	}
	msg := buildMessage(cfg, "ana@example.com", "Appointment reminder", "See you at 14:00")

	for _, want := range []string{
		"From: \"GlowDesk Studio\" <no-reply@glowdesk.local>\r\n",
		"To: ana@example.com\r\n",
		"Reply-To: desk@glowdesk.local\r\n",
		"Subject: Appointment reminder\r\n",
		"\r\n\r\nSee you at 14:00\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestBuildMessageBareFrom(t *testing.T) {
	msg := buildMessage(Config{From: "no-reply@glowdesk.local"}, "ana@example.com", "Hi", "body")
	if !strings.HasPrefix(msg, "From: no-reply@glowdesk.local\r\n") {
		t.Fatalf("from header = %q", strings.SplitN(msg, "\r\n", 2)[0])
	}
	if strings.Contains(msg, "Reply-To:") {
		t.Fatal("unexpected reply-to header")
	}
}
