package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/glowdesk/glowdesk/libs/geo"
	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/services/directory-service/internal/storage"
)

// Punch clocks a professional in or out. The punch location is compared
// against the clinic geofence and the punch time against the schedule
// window; a punch outside either is recorded and flagged rather than
// rejected, since GPS drift would otherwise lock people out.
func (h *Handler) Punch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		ProfessionalID string  `json:"professional_id"`
		Kind           string  `json:"kind"`
		PhotoRef       string  `json:"photo_ref"`
		Lat            float64 `json:"lat"`
		Lng            float64 `json:"lng"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ProfessionalID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "professional_id is required")
		return
	}
	if req.Kind != "in" && req.Kind != "out" {
		httpx.WriteError(w, http.StatusBadRequest, "kind must be \"in\" or \"out\"")
		return
	}
	if req.PhotoRef == "" {
		httpx.WriteError(w, http.StatusBadRequest, "photo_ref is required")
		return
	}

	last, exists, err := h.repo.LastPunch(r.Context(), req.ProfessionalID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if exists && last.Kind == req.Kind {
		httpx.WriteError(w, http.StatusBadRequest, "already clocked "+req.Kind)
		return
	}
	if !exists && req.Kind == "out" {
		httpx.WriteError(w, http.StatusBadRequest, "cannot clock out before clocking in")
		return
	}

	profile, err := h.repo.GetProfile(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	distance := geo.DistanceMeters(
		geo.Point{Lat: profile.GeofenceLat, Lng: profile.GeofenceLng},
		geo.Point{Lat: req.Lat, Lng: req.Lng},
	)
	flagged := profile.GeofenceMeter > 0 && distance > profile.GeofenceMeter

	now := time.Now().UTC()
	entries, err := h.repo.GetSchedule(r.Context(), req.ProfessionalID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	outsideSchedule := !withinSchedule(entries, clinicLocal(now, profile.Timezone))

	punch := storage.Punch{
		ProfessionalID:  req.ProfessionalID,
		Kind:            req.Kind,
		OccurredAt:      now,
		PhotoRef:        req.PhotoRef,
		Lat:             req.Lat,
		Lng:             req.Lng,
		DistanceMeters:  distance,
		Flagged:         flagged,
		OutsideSchedule: outsideSchedule,
	}
	id, err := h.repo.CreatePunch(r.Context(), punch)
	if errors.Is(err, pgx.ErrNoRows) {
		httpx.WriteError(w, http.StatusNotFound, "professional not found")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if flagged {
		h.logger.Warn("punch outside geofence",
			"professional_id", req.ProfessionalID,
			"distance_meters", distance,
		)
	}
	if outsideSchedule {
		h.logger.Warn("punch outside schedule window",
			"professional_id", req.ProfessionalID,
			"occurred_at", now,
		)
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":               id,
		"kind":             punch.Kind,
		"occurred_at":      punch.OccurredAt,
		"photo_ref":        punch.PhotoRef,
		"distance_meters":  distance,
		"flagged":          flagged,
		"outside_schedule": outsideSchedule,
	})
}

// clinicLocal converts a punch instant into the clinic's wall clock.
// An unknown timezone falls back to UTC.
func clinicLocal(t time.Time, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}

// withinSchedule reports whether the local punch time falls inside an
// active schedule window for that weekday.
func withinSchedule(entries []storage.ScheduleEntry, local time.Time) bool {
	wd := int(local.Weekday())
	minute := local.Hour()*60 + local.Minute()
	for _, e := range entries {
		if e.Weekday != wd || !e.IsActive {
			continue
		}
		if minute >= e.StartMinute && minute < e.EndMinute {
			return true
		}
	}
	return false
}

func (h *Handler) Punches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
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
	punches, err := h.repo.ListPunches(r.Context(), professionalID, from, to, limit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, punches)
}
