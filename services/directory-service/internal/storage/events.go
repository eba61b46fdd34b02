package storage

import (
	"encoding/json"

	"github.com/glowdesk/glowdesk/libs/eventx"
)

// Event types broadcast so other services can keep local reference
// caches. Topic names equal event types.
const (
	EventClientUpserted       = "directory.client.upserted.v1"
	EventProfessionalUpserted = "directory.professional.upserted.v1"
	EventServiceUpserted      = "directory.service.upserted.v1"
	EventScheduleUpserted     = "directory.schedule.upserted.v1"
)

func clientEvent(c Client) eventx.Event {
	payload, _ := json.Marshal(map[string]any{
		"client_id": c.ID,
		"name":      c.Name,
		"email":     c.Email,
		"phone":     c.Phone,
		"active":    c.Active,
	})
	return eventx.Event{AggregateType: "client", AggregateID: c.ID, EventType: EventClientUpserted, Payload: payload}
}

func professionalEvent(p Professional) eventx.Event {
	payload, _ := json.Marshal(map[string]any{
		"professional_id": p.ID,
		"name":            p.Name,
		"active":          p.Active,
	})
	return eventx.Event{AggregateType: "professional", AggregateID: p.ID, EventType: EventProfessionalUpserted, Payload: payload}
}

func serviceEvent(s CatalogService) eventx.Event {
	payload, _ := json.Marshal(map[string]any{
		"service_id":       s.ID,
		"name":             s.Name,
		"duration_minutes": s.DurationMinutes,
		"price":            s.Price,
		"active":           s.Active,
	})
	return eventx.Event{AggregateType: "service", AggregateID: s.ID, EventType: EventServiceUpserted, Payload: payload}
}

type scheduleEventEntry struct {
	Weekday     int  `json:"weekday"`
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`
	IsActive    bool `json:"is_active"`
}

func scheduleEvent(professionalID string, entries []ScheduleEntry) eventx.Event {
	out := make([]scheduleEventEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, scheduleEventEntry{
			Weekday:     e.Weekday,
			StartMinute: e.StartMinute,
			EndMinute:   e.EndMinute,
			IsActive:    e.IsActive,
		})
	}
	payload, _ := json.Marshal(map[string]any{
		"professional_id": professionalID,
		"entries":         out,
	})
	return eventx.Event{AggregateType: "schedule", AggregateID: professionalID, EventType: EventScheduleUpserted, Payload: payload}
}
