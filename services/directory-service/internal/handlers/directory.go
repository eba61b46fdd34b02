// Package handlers exposes the directory HTTP API: clinic profile,
// clients, professionals and their schedules, the service catalog, time
// off, the time clock and inventory.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/services/directory-service/internal/storage"
)

const minutesPerDay = 24 * 60

type Handler struct {
	repo   *storage.Repository
	logger *slog.Logger
}

func New(repo *storage.Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Register mounts every directory route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/profile", h.Profile)
	mux.HandleFunc("/api/v1/clients", h.Clients)
	mux.HandleFunc("/api/v1/clients/get", h.GetClient)
	mux.HandleFunc("/api/v1/clients/update", h.UpdateClient)
	mux.HandleFunc("/api/v1/professionals", h.Professionals)
	mux.HandleFunc("/api/v1/professionals/update", h.UpdateProfessional)
	mux.HandleFunc("/api/v1/professionals/schedule", h.Schedule)
	mux.HandleFunc("/api/v1/professionals/time-off", h.TimeOff)
	mux.HandleFunc("/api/v1/professionals/time-off/remove", h.RemoveTimeOff)
	mux.HandleFunc("/api/v1/catalog", h.Catalog)
	mux.HandleFunc("/api/v1/catalog/get", h.GetCatalogService)
	mux.HandleFunc("/api/v1/catalog/update", h.UpdateCatalogService)
	mux.HandleFunc("/api/v1/timeclock/punch", h.Punch)
	mux.HandleFunc("/api/v1/timeclock/punches", h.Punches)
	mux.HandleFunc("/api/v1/inventory/items", h.Items)
	mux.HandleFunc("/api/v1/inventory/movements", h.Movements)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, err := h.repo.GetProfile(r.Context())
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"name":                   p.Name,
			"timezone":               p.Timezone,
			"geofence_lat":           p.GeofenceLat,
			"geofence_lng":           p.GeofenceLng,
			"geofence_radius_meters": p.GeofenceMeter,
		})
	case http.MethodPut:
		var req struct {
			Name          string  `json:"name"`
			Timezone      string  `json:"timezone"`
			GeofenceLat   float64 `json:"geofence_lat"`
			GeofenceLng   float64 `json:"geofence_lng"`
			GeofenceMeter float64 `json:"geofence_radius_meters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.Timezone == "" {
			req.Timezone = "UTC"
		}
		if req.GeofenceMeter < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "geofence_radius_meters must not be negative")
			return
		}
		err := h.repo.UpdateProfile(r.Context(), storage.ClinicProfile{
			Name:          strings.TrimSpace(req.Name),
			Timezone:      req.Timezone,
			GeofenceLat:   req.GeofenceLat,
			GeofenceLng:   req.GeofenceLng,
			GeofenceMeter: req.GeofenceMeter,
		})
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Phone string `json:"phone"`
			Notes string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			httpx.WriteError(w, http.StatusBadRequest, "name is required")
			return
		}
		id, err := h.repo.CreateClient(r.Context(), storage.Client{
			Name:  req.Name,
			Email: strings.TrimSpace(req.Email),
			Phone: strings.TrimSpace(req.Phone),
			Notes: req.Notes,
		})
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
	case http.MethodGet:
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		clients, err := h.repo.ListClients(r.Context(), q.Get("search"), limit)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, clientItems(clients))
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type clientItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func clientItems(clients []storage.Client) []clientItem {
	out := make([]clientItem, 0, len(clients))
	for _, c := range clients {
		out = append(out, clientItem{
			ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone,
			Notes: c.Notes, Active: c.Active, CreatedAt: c.CreatedAt,
		})
	}
	return out
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id is required")
		return
	}
	c, err := h.repo.GetClient(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		httpx.WriteError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clientItem{
		ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone,
		Notes: c.Notes, Active: c.Active, CreatedAt: c.CreatedAt,
	})
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Email  string `json:"email"`
		Phone  string `json:"phone"`
		Notes  string `json:"notes"`
		Active *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ID == "" || strings.TrimSpace(req.Name) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id and name are required")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	err := h.repo.UpdateClient(r.Context(), storage.Client{
		ID: req.ID, Name: strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email), Phone: strings.TrimSpace(req.Phone),
		Notes: req.Notes, Active: active,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		httpx.WriteError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Professionals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name      string `json:"name"`
			Specialty string `json:"specialty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			httpx.WriteError(w, http.StatusBadRequest, "name is required")
			return
		}
		id, err := h.repo.CreateProfessional(r.Context(), storage.Professional{
			Name: req.Name, Specialty: strings.TrimSpace(req.Specialty),
		})
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		pros, err := h.repo.ListProfessionals(r.Context(), limit)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, pros)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) UpdateProfessional(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Specialty string `json:"specialty"`
		Active    *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ID == "" || strings.TrimSpace(req.Name) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id and name are required")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	err := h.repo.UpdateProfessional(r.Context(), storage.Professional{
		ID: req.ID, Name: strings.TrimSpace(req.Name),
		Specialty: strings.TrimSpace(req.Specialty), Active: active,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		httpx.WriteError(w, http.StatusNotFound, "professional not found")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scheduleEntryItem struct {
	Weekday     int  `json:"weekday"`
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`
	IsActive    bool `json:"is_active"`
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		professionalID := r.URL.Query().Get("professional_id")
		if professionalID == "" {
			httpx.WriteError(w, http.StatusBadRequest, "professional_id is required")
			return
		}
		entries, err := h.repo.GetSchedule(r.Context(), professionalID)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		out := make([]scheduleEntryItem, 0, len(entries))
		for _, e := range entries {
			out = append(out, scheduleEntryItem(e))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	case http.MethodPut:
		var req struct {
			ProfessionalID string              `json:"professional_id"`
			Entries        []scheduleEntryItem `json:"entries"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.ProfessionalID == "" || len(req.Entries) == 0 {
			httpx.WriteError(w, http.StatusBadRequest, "professional_id and entries are required")
			return
		}
		entries := make([]storage.ScheduleEntry, 0, len(req.Entries))
		for _, e := range req.Entries {
			if e.Weekday < 0 || e.Weekday > 6 {
				httpx.WriteError(w, http.StatusBadRequest, "weekday must be 0-6")
				return
			}
			if e.IsActive && (e.StartMinute < 0 || e.EndMinute > minutesPerDay || e.StartMinute >= e.EndMinute) {
				httpx.WriteError(w, http.StatusBadRequest, "invalid schedule window")
				return
			}
			entries = append(entries, storage.ScheduleEntry(e))
		}
		err := h.repo.ReplaceSchedule(r.Context(), req.ProfessionalID, entries)
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.WriteError(w, http.StatusNotFound, "professional not found")
			return
		}
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) TimeOff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			ProfessionalID string `json:"professional_id"`
			StartTime      string `json:"start_time"`
			EndTime        string `json:"end_time"`
			Reason         string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		start, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid start_time")
			return
		}
		end, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid end_time")
			return
		}
		if req.ProfessionalID == "" || !end.After(start) {
			httpx.WriteError(w, http.StatusBadRequest, "professional_id and a positive interval are required")
			return
		}
		id, err := h.repo.CreateTimeOff(r.Context(), req.ProfessionalID, start, end, req.Reason)
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.WriteError(w, http.StatusNotFound, "professional not found")
			return
		}
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
	case http.MethodGet:
		q := r.URL.Query()
		professionalID := q.Get("professional_id")
		if professionalID == "" {
			httpx.WriteError(w, http.StatusBadRequest, "professional_id is required")
			return
		}
		from, to, err := parseRange(q.Get("from"), q.Get("to"))
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		items, err := h.repo.ListTimeOff(r.Context(), professionalID, from, to, limit)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, items)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) RemoveTimeOff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id is required")
		return
	}
	err := h.repo.DeleteTimeOff(r.Context(), req.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		httpx.WriteError(w, http.StatusNotFound, "time off not found")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name            string `json:"name"`
			Description     string `json:"description"`
			DurationMinutes int    `json:"duration_minutes"`
			Price           string `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.DurationMinutes <= 0 || req.DurationMinutes > minutesPerDay {
			httpx.WriteError(w, http.StatusBadRequest, "name and a duration between 1 and 1440 minutes are required")
			return
		}
		if req.Price == "" {
			req.Price = "0"
		}
		id, err := h.repo.CreateService(r.Context(), storage.CatalogService{
			Name:            req.Name,
			Description:     req.Description,
			DurationMinutes: req.DurationMinutes,
			Price:           req.Price,
		})
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		services, err := h.repo.ListServices(r.Context(), limit)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, services)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) GetCatalogService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id is required")
		return
	}
	svc, err := h.repo.GetService(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		httpx.WriteError(w, http.StatusNotFound, "service not found")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, svc)
}

func (h *Handler) UpdateCatalogService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Description     string `json:"description"`
		DurationMinutes int    `json:"duration_minutes"`
		Price           string `json:"price"`
		Active          *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" || req.Name == "" || req.DurationMinutes <= 0 || req.DurationMinutes > minutesPerDay {
		httpx.WriteError(w, http.StatusBadRequest, "id, name and a valid duration are required")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	if req.Price == "" {
		req.Price = "0"
	}
	err := h.repo.UpdateService(r.Context(), storage.CatalogService{
		ID: req.ID, Name: req.Name, Description: req.Description,
		DurationMinutes: req.DurationMinutes, Price: req.Price, Active: active,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		httpx.WriteError(w, http.StatusNotFound, "service not found")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Now().UTC().AddDate(0, 0, -30)
	to := time.Now().UTC().AddDate(0, 0, 90)
	if fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from")
		}
		from = t
	}
	if toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to")
		}
		to = t
	}
	return from, to, nil
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	httpx.WriteError(w, http.StatusInternalServerError, "internal error")
}
