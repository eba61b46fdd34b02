package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookSenderSend(t *testing.T) {
	var got map[string]string
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewWebhookSender(Config{
		WebhookURL: srv.URL,
		Token:      "secret",
		SenderID:   "GlowDesk",
	})
	if err := sender.Send(context.Background(), "+5511999990000", "see you at 14:00"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["to"] != "+5511999990000" || got["from"] != "GlowDesk" || got["body"] != "see you at 14:00" {
		t.Fatalf("payload = %v", got)
	}
	if authHeader != "Bearer secret" {
		t.Fatalf("authorization = %q", authHeader)
	}
}

func TestWebhookSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender := NewWebhookSender(Config{WebhookURL: srv.URL})
	if err := sender.Send(context.Background(), "+5511999990000", "hi"); err == nil {
		t.Fatal("non-2xx response not surfaced")
	}
}

func TestWebhookSenderUnconfigured(t *testing.T) {
	sender := NewWebhookSender(Config{})
	if err := sender.Send(context.Background(), "+5511999990000", "hi"); err == nil {
		t.Fatal("missing url not surfaced")
	}
}
