// Package directory keeps the scheduling service's reference cache in
// sync with directory-service events.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/storage"
)

// Topics carrying directory reference data.
const (
	TopicClientUpserted       = "directory.client.upserted.v1"
	TopicProfessionalUpserted = "directory.professional.upserted.v1"
	TopicServiceUpserted      = "directory.service.upserted.v1"
	TopicScheduleUpserted     = "directory.schedule.upserted.v1"
)

// Topics lists everything the sync consumer subscribes to.
func Topics() []string {
	return []string{
		TopicClientUpserted,
		TopicProfessionalUpserted,
		TopicServiceUpserted,
		TopicScheduleUpserted,
	}
}

// Sync applies directory events to the local reference tables.
type Sync struct {
	refs   *storage.ReferenceRepository
	logger *slog.Logger
}

func NewSync(refs *storage.ReferenceRepository, logger *slog.Logger) *Sync {
	return &Sync{refs: refs, logger: logger}
}

type clientPayload struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Active   bool   `json:"active"`
}

type professionalPayload struct {
	ProfessionalID string `json:"professional_id"`
	Name           string `json:"name"`
	Active         bool   `json:"active"`
}

type servicePayload struct {
	ServiceID       string `json:"service_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
	Active          bool   `json:"active"`
}

type schedulePayload struct {
	ProfessionalID string `json:"professional_id"`
	Entries        []struct {
		Weekday     int  `json:"weekday"`
		StartMinute int  `json:"start_minute"`
		EndMinute   int  `json:"end_minute"`
		IsActive    bool `json:"is_active"`
	} `json:"entries"`
}

// Handle routes a directory message by topic and upserts the cache row.
func (s *Sync) Handle(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case TopicClientUpserted:
		var p clientPayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			return fmt.Errorf("decode client payload: %w", err)
		}
		return s.refs.UpsertClient(ctx, p.ClientID, p.Name, p.Email, p.Phone, p.Active)
	case TopicProfessionalUpserted:
		var p professionalPayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			return fmt.Errorf("decode professional payload: %w", err)
		}
		return s.refs.UpsertProfessional(ctx, p.ProfessionalID, p.Name, p.Active)
	case TopicServiceUpserted:
		var p servicePayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			return fmt.Errorf("decode service payload: %w", err)
		}
		return s.refs.UpsertService(ctx, p.ServiceID, p.Name, p.DurationMinutes, p.Price, p.Active)
	case TopicScheduleUpserted:
		var p schedulePayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			return fmt.Errorf("decode schedule payload: %w", err)
		}
		entries := make([]storage.ScheduleEntry, 0, len(p.Entries))
		for _, e := range p.Entries {
			entries = append(entries, storage.ScheduleEntry{
				Weekday:     e.Weekday,
				StartMinute: e.StartMinute,
				EndMinute:   e.EndMinute,
				IsActive:    e.IsActive,
			})
		}
		return s.refs.ReplaceSchedule(ctx, p.ProfessionalID, entries)
	default:
		s.logger.Warn("unknown directory topic", "topic", msg.Topic)
		return nil
	}
}
