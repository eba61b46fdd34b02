package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/services/reporting-service/internal/storage"
)

const dayFormat = "2006-01-02"

type ReportHandler struct {
	repo   *storage.Repository
	logger *slog.Logger
}

func NewReportHandler(repo *storage.Repository, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{repo: repo, logger: logger}
}

func (h *ReportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/reports/appointments", h.Appointments)
	mux.HandleFunc("/api/v1/reports/services", h.Services)
	mux.HandleFunc("/api/v1/reports/professionals", h.Professionals)
	mux.HandleFunc("/api/v1/reports/rates", h.Rates)
	mux.HandleFunc("/api/v1/reports/notifications", h.Notifications)
	mux.HandleFunc("/api/v1/reports/dlq", h.DLQ)
}

// dayRange parses from/to query params, defaulting to the last 30 days.
func dayRange(r *http.Request) (string, string, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30).Format(dayFormat)
	to := now.Format(dayFormat)

	if v := r.URL.Query().Get("from"); v != "" {
		if _, err := time.Parse(dayFormat, v); err != nil {
			return "", "", false
		}
		from = v
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if _, err := time.Parse(dayFormat, v); err != nil {
			return "", "", false
		}
		to = v
	}
	return from, to, from <= to
}

func (h *ReportHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	from, to, ok := dayRange(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid from/to range, expected YYYY-MM-DD")
		return
	}

	rows, err := h.repo.AppointmentReport(r.Context(), from, to)
	if err != nil {
		h.logger.Error("appointment report failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if rows == nil {
		rows = []storage.DailyAppointments{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"from": from,
		"to":   to,
		"days": rows,
	})
}

func (h *ReportHandler) Services(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	from, to, ok := dayRange(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid from/to range, expected YYYY-MM-DD")
		return
	}

	rows, err := h.repo.ServiceRevenueReport(r.Context(), from, to)
	if err != nil {
		h.logger.Error("service revenue report failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if rows == nil {
		rows = []storage.ServiceRevenue{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"from":     from,
		"to":       to,
		"services": rows,
	})
}

func (h *ReportHandler) Professionals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	from, to, ok := dayRange(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid from/to range, expected YYYY-MM-DD")
		return
	}

	rows, err := h.repo.ProfessionalUtilizationReport(r.Context(), from, to)
	if err != nil {
		h.logger.Error("professional utilization report failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if rows == nil {
		rows = []storage.ProfessionalUtilization{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"from":          from,
		"to":            to,
		"professionals": rows,
	})
}

// RateSummary totals the range and derives cancellation and no-show rates
// against bookings.
type RateSummary struct {
	Booked           int     `json:"booked"`
	Cancelled        int     `json:"cancelled"`
	Completed        int     `json:"completed"`
	NoShows          int     `json:"no_shows"`
	CancellationRate float64 `json:"cancellation_rate"`
	NoShowRate       float64 `json:"no_show_rate"`
}

func computeRates(days []storage.DailyAppointments) RateSummary {
	var s RateSummary
	for _, d := range days {
		s.Booked += d.Booked
		s.Cancelled += d.Cancelled
		s.Completed += d.Completed
		s.NoShows += d.NoShows
	}
	if s.Booked > 0 {
		s.CancellationRate = float64(s.Cancelled) / float64(s.Booked)
		s.NoShowRate = float64(s.NoShows) / float64(s.Booked)
	}
	return s
}

func (h *ReportHandler) Rates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	from, to, ok := dayRange(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid from/to range, expected YYYY-MM-DD")
		return
	}

	days, err := h.repo.AppointmentReport(r.Context(), from, to)
	if err != nil {
		h.logger.Error("rate report failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	summary := computeRates(days)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"from":    from,
		"to":      to,
		"summary": summary,
	})
}

func (h *ReportHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	from, to, ok := dayRange(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid from/to range, expected YYYY-MM-DD")
		return
	}

	rows, err := h.repo.NotificationReport(r.Context(), from, to)
	if err != nil {
		h.logger.Error("notification report failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if rows == nil {
		rows = []storage.DailyNotifications{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"from": from,
		"to":   to,
		"days": rows,
	})
}

func (h *ReportHandler) DLQ(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	rows, err := h.repo.RecentDLQEvents(r.Context(), limit)
	if err != nil {
		h.logger.Error("dlq report failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if rows == nil {
		rows = []storage.DLQEvent{}
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}
