package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/glowdesk/glowdesk/services/reporting-service/internal/storage"
)

func TestComputeRates(t *testing.T) {
	days := []storage.DailyAppointments{
		{Day: "2026-03-02", Booked: 10, Cancelled: 1, Completed: 7, NoShows: 1},
		{Day: "2026-03-03", Booked: 10, Cancelled: 3, Completed: 5, NoShows: 1},
	}
	s := computeRates(days)
	if s.Booked != 20 || s.Cancelled != 4 || s.Completed != 12 || s.NoShows != 2 {
		t.Fatalf("totals = %+v", s)
	}
	if s.CancellationRate != 0.2 {
		t.Fatalf("cancellation rate = %v", s.CancellationRate)
	}
	if s.NoShowRate != 0.1 {
		t.Fatalf("no-show rate = %v", s.NoShowRate)
	}
}

func TestComputeRatesEmptyRange(t *testing.T) {
	s := computeRates(nil)
	if s.CancellationRate != 0 || s.NoShowRate != 0 {
		t.Fatalf("empty range produced nonzero rates: %+v", s)
	}
}

func TestDayRange(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/reports/rates?from=2026-03-01&to=2026-03-31", nil)
	from, to, ok := dayRange(r)
	if !ok || from != "2026-03-01" || to != "2026-03-31" {
		t.Fatalf("range = %s..%s ok=%v", from, to, ok)
	}

	r = httptest.NewRequest("GET", "/api/v1/reports/rates?from=2026-03-31&to=2026-03-01", nil)
	if _, _, ok := dayRange(r); ok {
		t.Fatal("inverted range accepted")
	}

	r = httptest.NewRequest("GET", "/api/v1/reports/rates?from=march", nil)
	if _, _, ok := dayRange(r); ok {
		t.Fatal("malformed date accepted")
	}
}
