package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glowdesk/glowdesk/libs/auth"
)

func TestRequireAuthHS256(t *testing.T) {
	secret := "test-secret"
	claims := auth.Claims{
		Sub:  "user-1",
		Role: auth.RoleManager,
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(1 * time.Hour).Unix(),
	}
	token, err := auth.SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	h := requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Actor-Id") != claims.Sub {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("X-Role") != claims.Role {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), secret, nil)

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	reqBad := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	reqBad.Header.Set("Authorization", "Bearer badtoken")
	rwBad := httptest.NewRecorder()
	h.ServeHTTP(rwBad, reqBad)
	if rwBad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rwBad.Code)
	}
}

func TestRequireAuthStripsSpoofedHeaders(t *testing.T) {
	secret := "test-secret"
	token, err := auth.SignHS256(auth.Claims{
		Sub:  "user-1",
		Role: auth.RoleReceptionist,
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(time.Hour).Unix(),
	}, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	h := requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Role") != auth.RoleReceptionist || r.Header.Get("X-Actor-Id") != "user-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), secret, nil)

	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Role", auth.RoleAdmin)
	req.Header.Set("X-Actor-Id", "someone-else")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200 with claims headers, got %d", rw.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	h := requirePermission(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), auth.ResourceAppointments)

	cases := []struct {
		role   string
		method string
		path   string
		want   int
	}{
		{auth.RoleReceptionist, http.MethodPost, "/api/v1/appointments", http.StatusOK},
		{auth.RoleReceptionist, http.MethodGet, "/api/v1/appointments", http.StatusOK},
		{auth.RoleReceptionist, http.MethodPost, "/api/v1/appointments/remove", http.StatusForbidden},
		{auth.RoleProfessional, http.MethodGet, "/api/v1/appointments", http.StatusOK},
		{auth.RoleProfessional, http.MethodPost, "/api/v1/appointments", http.StatusForbidden},
		{auth.RoleManager, http.MethodPost, "/api/v1/appointments/remove", http.StatusOK},
		{auth.RoleAdmin, http.MethodPost, "/api/v1/appointments/remove", http.StatusOK},
		{"", http.MethodGet, "/api/v1/appointments", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "http://example.com"+tc.path, nil)
		req.Header.Set("X-Role", tc.role)
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		if rw.Code != tc.want {
			t.Fatalf("%s %s as %q: got %d, want %d", tc.method, tc.path, tc.role, rw.Code, tc.want)
		}
	}
}

func TestActionFor(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/v1/slots", auth.ActionRead},
		{http.MethodHead, "/api/v1/slots", auth.ActionRead},
		{http.MethodPost, "/api/v1/appointments/cancel", auth.ActionWrite},
		{http.MethodPost, "/api/v1/appointments/remove", auth.ActionDelete},
		{http.MethodPost, "/api/v1/appointments/remove/", auth.ActionDelete},
		{http.MethodDelete, "/api/v1/inventory/items", auth.ActionDelete},
		{http.MethodPut, "/api/v1/profile", auth.ActionWrite},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "http://example.com"+tc.path, nil)
		if got := actionFor(req); got != tc.want {
			t.Fatalf("%s %s: action = %q, want %q", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestRequireRole(t *testing.T) {
	h := requireRole(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), auth.RoleAdmin, auth.RoleManager)

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("X-Role", auth.RoleReceptionist)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rw.Code)
	}

	reqOK := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	reqOK.Header.Set("X-Role", auth.RoleManager)
	rwOK := httptest.NewRecorder()
	h.ServeHTTP(rwOK, reqOK)
	if rwOK.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rwOK.Code)
	}
}
