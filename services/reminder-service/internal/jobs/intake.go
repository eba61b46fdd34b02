package jobs

import (
	"errors"
	"time"
)

var ErrDropped = errors.New("reminder send time already past")

// Lifecycle topics whose appointments no longer need their pending
// reminders.
const (
	TopicAppointmentCancelled   = "scheduling.appointment.cancelled.v1"
	TopicAppointmentNoShow      = "scheduling.appointment.no_show.v1"
	TopicAppointmentRescheduled = "scheduling.appointment.rescheduled.v1"
)

func CancelTopics() []string {
	return []string{
		TopicAppointmentCancelled,
		TopicAppointmentNoShow,
		TopicAppointmentRescheduled,
	}
}

// AppointmentEvent carries the lifecycle payload fields the cancel
// consumers need.
type AppointmentEvent struct {
	AppointmentID   string `json:"appointment_id"`
	RescheduledFrom string `json:"rescheduled_from"`
}

// CancelTarget names the appointment whose pending reminders the event
// voids. Rescheduled events are emitted for the replacement appointment,
// so the superseded original is the rescheduled_from id; the replacement
// keeps the reminders created for its new slot.
func CancelTarget(topic string, ev AppointmentEvent) string {
	if topic == TopicAppointmentRescheduled {
		return ev.RescheduledFrom
	}
	return ev.AppointmentID
}

// ReminderRequest mirrors the scheduling.reminder.requested.v1 payload.
type ReminderRequest struct {
	AppointmentID  string    `json:"appointment_id"`
	ClientID       string    `json:"client_id"`
	ProfessionalID string    `json:"professional_id"`
	ServiceID      string    `json:"service_id"`
	Kind           string    `json:"kind"`
	Date           string    `json:"date"`
	StartTime      string    `json:"start_time"`
	SendAt         time.Time `json:"send_at"`
}

// BuildJob validates a reminder request and shapes it into a pending job.
// Requests whose send time already passed come back as ErrDropped; the
// scheduling side emits them unconditionally and dropping happens here.
func BuildJob(req ReminderRequest, now time.Time) (Job, error) {
	if req.AppointmentID == "" || req.ClientID == "" || req.Kind == "" || req.SendAt.IsZero() {
		return Job{}, errors.New("missing reminder fields")
	}
	if !req.SendAt.After(now) {
		return Job{}, ErrDropped
	}
	return Job{
		IdempotencyKey: req.AppointmentID + "|" + req.Kind,
		AppointmentID:  req.AppointmentID,
		ClientID:       req.ClientID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		Kind:           req.Kind,
		Date:           req.Date,
		StartTime:      req.StartTime,
		SendAt:         req.SendAt,
	}, nil
}
