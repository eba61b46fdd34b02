// Package handlers exposes the scheduling HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/scheduling"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/timegrid"
)

// actorHeader carries the authenticated user id, set by the gateway from
// the verified token.
const actorHeader = "X-Actor-Id"

type AppointmentHandler struct {
	service *scheduling.Service
	logger  *slog.Logger
}

func NewAppointmentHandler(service *scheduling.Service, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{service: service, logger: logger}
}

// Register mounts all appointment routes on mux.
func (h *AppointmentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/appointments", h.collection)
	mux.HandleFunc("/api/v1/appointments/get", h.Get)
	mux.HandleFunc("/api/v1/appointments/update", h.Update)
	mux.HandleFunc("/api/v1/appointments/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/appointments/confirm", h.Confirm)
	mux.HandleFunc("/api/v1/appointments/complete", h.Complete)
	mux.HandleFunc("/api/v1/appointments/no-show", h.NoShow)
	mux.HandleFunc("/api/v1/appointments/reschedule", h.Reschedule)
	mux.HandleFunc("/api/v1/appointments/remove", h.Remove)
	mux.HandleFunc("/api/v1/slots", h.Slots)
}

func (h *AppointmentHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodGet:
		h.List(w, r)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type createRequest struct {
	ClientID       string `json:"client_id"`
	ProfessionalID string `json:"professional_id"`
	ServiceID      string `json:"service_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	Type           string `json:"type"`
	Priority       string `json:"priority"`
	Notes          string `json:"notes"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	appt, err := h.service.Create(r.Context(), scheduling.CreateInput{
		ClientID:       strings.TrimSpace(req.ClientID),
		ProfessionalID: strings.TrimSpace(req.ProfessionalID),
		ServiceID:      strings.TrimSpace(req.ServiceID),
		Date:           strings.TrimSpace(req.Date),
		StartTime:      strings.TrimSpace(req.StartTime),
		Type:           model.Type(req.Type),
		Priority:       model.Priority(req.Priority),
		Notes:          req.Notes,
		ActorID:        actorID(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, appt)
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if clientID := q.Get("client_id"); clientID != "" {
		limit, _ := strconv.Atoi(q.Get("limit"))
		appts, err := h.service.ListByClient(r.Context(), clientID, limit)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, appts)
		return
	}

	date := q.Get("date")
	if date == "" {
		httpx.WriteError(w, http.StatusBadRequest, "date or client_id is required")
		return
	}
	appts, err := h.service.ListByDate(r.Context(), date, q.Get("professional_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appts)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id is required")
		return
	}
	appt, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

type updateRequest struct {
	ID             string  `json:"id"`
	ProfessionalID *string `json:"professional_id"`
	ServiceID      *string `json:"service_id"`
	Date           *string `json:"date"`
	StartTime      *string `json:"start_time"`
	Type           *string `json:"type"`
	Priority       *string `json:"priority"`
	Notes          *string `json:"notes"`
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id is required")
		return
	}

	in := scheduling.UpdateInput{
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		Notes:          req.Notes,
		ActorID:        actorID(r),
	}
	if req.Type != nil {
		t := model.Type(*req.Type)
		in.Type = &t
	}
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		in.Priority = &p
	}

	appt, err := h.service.Update(r.Context(), req.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

type cancelRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeIDRequest(w, r)
	if !ok {
		return
	}
	appt, err := h.service.Cancel(r.Context(), req.ID, req.Reason, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeIDRequest(w, r)
	if !ok {
		return
	}
	appt, err := h.service.Confirm(r.Context(), req.ID, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeIDRequest(w, r)
	if !ok {
		return
	}
	appt, err := h.service.Complete(r.Context(), req.ID, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) NoShow(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeIDRequest(w, r)
	if !ok {
		return
	}
	appt, err := h.service.NoShow(r.Context(), req.ID, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

type rescheduleRequest struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ID == "" || req.Date == "" || req.StartTime == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id, date and start_time are required")
		return
	}
	appt, err := h.service.Reschedule(r.Context(), req.ID, req.Date, req.StartTime, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, appt)
}

func (h *AppointmentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeIDRequest(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), req.ID, actorID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		httpx.WriteError(w, http.StatusBadRequest, "date is required")
		return
	}
	slots, err := h.service.Slots(r.Context(), date, q.Get("professional_id"), q.Get("service_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slots)
}

func (h *AppointmentHandler) decodeIDRequest(w http.ResponseWriter, r *http.Request) (cancelRequest, bool) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return cancelRequest{}, false
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return cancelRequest{}, false
	}
	if req.ID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id is required")
		return cancelRequest{}, false
	}
	return req, true
}

func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(actorHeader))
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduling.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scheduling.ErrInvalidTransition),
		errors.Is(err, scheduling.ErrInvalidInput),
		errors.Is(err, timegrid.ErrInvalidTimeFormat):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
