// Package ingest folds scheduling, notification, and reminder events into
// the reporting tables.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/glowdesk/glowdesk/libs/kafkax"
	"github.com/glowdesk/glowdesk/services/reporting-service/internal/storage"
)

const (
	TopicAppointmentBooked    = "scheduling.appointment.booked.v1"
	TopicAppointmentCancelled = "scheduling.appointment.cancelled.v1"
	TopicAppointmentCompleted = "scheduling.appointment.completed.v1"
	TopicAppointmentNoShow    = "scheduling.appointment.no_show.v1"
	TopicNotificationSent     = "notification.sent.v1"
	TopicNotificationFailed   = "notification.failed.v1"
	TopicReminderDLQ          = "reminder.dlq.v1"
	TopicAuthAudit            = "auth.audit.v1"
)

// AppointmentTopics lists the lifecycle events that feed daily metrics.
func AppointmentTopics() []string {
	return []string{
		TopicAppointmentBooked,
		TopicAppointmentCancelled,
		TopicAppointmentCompleted,
		TopicAppointmentNoShow,
	}
}

type Ingest struct {
	repo   *storage.Repository
	logger *slog.Logger
}

func New(repo *storage.Repository, logger *slog.Logger) *Ingest {
	return &Ingest{repo: repo, logger: logger}
}

type appointmentPayload struct {
	AppointmentID   string `json:"appointment_id"`
	ProfessionalID  string `json:"professional_id"`
	ServiceID       string `json:"service_id"`
	Date            string `json:"date"`
	ServicePrice    string `json:"service_price"`
	DurationMinutes int    `json:"duration_minutes"`
}

// DeltaFor maps a lifecycle topic to its daily counter increments.
// Revenue and utilization minutes only count on completion.
func DeltaFor(topic, servicePrice string, durationMinutes int) (storage.AppointmentDelta, bool) {
	switch topic {
	case TopicAppointmentBooked:
		return storage.AppointmentDelta{Booked: 1}, true
	case TopicAppointmentCancelled:
		return storage.AppointmentDelta{Cancelled: 1}, true
	case TopicAppointmentNoShow:
		return storage.AppointmentDelta{NoShows: 1}, true
	case TopicAppointmentCompleted:
		delta := storage.AppointmentDelta{Completed: 1, Minutes: durationMinutes}
		if _, err := strconv.ParseFloat(servicePrice, 64); err == nil {
			delta.Revenue = servicePrice
		}
		return delta, true
	}
	return storage.AppointmentDelta{}, false
}

func (i *Ingest) HandleAppointment(ctx context.Context, msg kafka.Message) error {
	var payload appointmentPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		i.logger.Error("invalid appointment payload", "err", err)
		return nil
	}
	if payload.AppointmentID == "" || payload.Date == "" {
		i.logger.Error("missing appointment fields", "topic", msg.Topic)
		return nil
	}

	delta, ok := DeltaFor(msg.Topic, payload.ServicePrice, payload.DurationMinutes)
	if !ok {
		i.logger.Warn("unexpected topic", "topic", msg.Topic)
		return nil
	}

	meta := kafkax.ExtractEventMeta(msg)
	if err := i.repo.RecordAppointmentEvent(ctx, meta.EventID, meta.EventType, payload.AppointmentID, payload.Date, payload.ProfessionalID, payload.ServiceID, delta); err != nil {
		i.logger.Error("failed to record appointment metric", "err", err)
		return err
	}
	i.logger.Info("appointment metric recorded", "appointment_id", payload.AppointmentID, "topic", msg.Topic)
	return nil
}

type notificationPayload struct {
	AppointmentID string `json:"appointment_id"`
	Channel       string `json:"channel"`
	SentAt        string `json:"sent_at"`
	FailedAt      string `json:"failed_at"`
}

func (i *Ingest) HandleNotification(ctx context.Context, msg kafka.Message) error {
	var payload notificationPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		i.logger.Error("invalid notification payload", "err", err)
		return nil
	}
	if payload.AppointmentID == "" || payload.Channel == "" {
		i.logger.Error("missing notification fields")
		return nil
	}

	sentInc, failedInc := 1, 0
	ts := payload.SentAt
	if msg.Topic == TopicNotificationFailed {
		sentInc, failedInc = 0, 1
		ts = payload.FailedAt
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		i.logger.Error("invalid notification timestamp", "err", err)
		return nil
	}

	day := t.UTC().Format("2006-01-02")
	if err := i.repo.BumpNotification(ctx, day, payload.Channel, sentInc, failedInc); err != nil {
		i.logger.Error("failed to record notification metric", "err", err)
		return err
	}
	return nil
}

type dlqPayload struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
	Kind          string `json:"kind"`
	ErrorReason   string `json:"error_reason"`
	FailedAt      string `json:"failed_at"`
}

func (i *Ingest) HandleDLQ(ctx context.Context, msg kafka.Message) error {
	var payload dlqPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		i.logger.Error("invalid dlq payload", "err", err)
		return nil
	}
	if payload.AppointmentID == "" || payload.Kind == "" {
		i.logger.Error("missing dlq fields")
		return nil
	}
	failedAt, err := time.Parse(time.RFC3339, payload.FailedAt)
	if err != nil {
		failedAt = time.Now().UTC()
	}

	if err := i.repo.InsertDLQEvent(ctx, payload.AppointmentID, payload.ClientID, payload.Kind, payload.ErrorReason, failedAt); err != nil {
		i.logger.Error("failed to record dlq event", "err", err)
		return err
	}
	i.logger.Warn("reminder dlq recorded", "appointment_id", payload.AppointmentID, "kind", payload.Kind)
	return nil
}

type auditPayload struct {
	AuditID string `json:"audit_id"`
	ActorID string `json:"actor_id"`
	Action  string `json:"action"`
}

func (i *Ingest) HandleAudit(ctx context.Context, msg kafka.Message) error {
	var payload auditPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		i.logger.Error("invalid audit payload", "err", err)
		return nil
	}
	if payload.Action == "" {
		i.logger.Error("missing audit fields")
		return nil
	}

	if err := i.repo.InsertSecurityAudit(ctx, payload.Action, payload.ActorID, msg.Value); err != nil {
		i.logger.Error("failed to record security audit", "err", err)
		return err
	}
	return nil
}
