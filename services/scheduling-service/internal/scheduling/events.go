package scheduling

import (
	"encoding/json"
	"time"

	"github.com/glowdesk/glowdesk/libs/eventx"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
)

// Event types published through the outbox. Topic names match event types.
const (
	EventAppointmentBooked      = "scheduling.appointment.booked.v1"
	EventAppointmentUpdated     = "scheduling.appointment.updated.v1"
	EventAppointmentConfirmed   = "scheduling.appointment.confirmed.v1"
	EventAppointmentCancelled   = "scheduling.appointment.cancelled.v1"
	EventAppointmentCompleted   = "scheduling.appointment.completed.v1"
	EventAppointmentNoShow      = "scheduling.appointment.no_show.v1"
	EventAppointmentRescheduled = "scheduling.appointment.rescheduled.v1"
	EventReminderRequested      = "scheduling.reminder.requested.v1"
)

const aggregateAppointment = "appointment"

// Reminder kinds requested for every booked appointment. Offsets are
// measured back from the appointment start. Requests whose send time is
// already past are still emitted; the reminder service drops them.
const (
	ReminderConfirmation = "confirmation"
	Reminder24h          = "reminder_24h"
	Reminder2h           = "reminder_2h"
)

var reminderOffsets = []struct {
	Kind   string
	Before time.Duration
}{
	{ReminderConfirmation, 24 * time.Hour},
	{Reminder24h, 24 * time.Hour},
	{Reminder2h, 2 * time.Hour},
}

type appointmentPayload struct {
	AppointmentID   string `json:"appointment_id"`
	ClientID        string `json:"client_id"`
	ProfessionalID  string `json:"professional_id,omitempty"`
	ServiceID       string `json:"service_id"`
	ServicePrice    string `json:"service_price,omitempty"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	Reason          string `json:"reason,omitempty"`
	RescheduledFrom string `json:"rescheduled_from,omitempty"`
	ActorID         string `json:"actor_id"`
}

func appointmentEvent(eventType string, appt model.Appointment, price, reason, actorID string) eventx.Event {
	payload, _ := json.Marshal(appointmentPayload{
		AppointmentID:   appt.ID,
		ClientID:        appt.ClientID,
		ProfessionalID:  appt.ProfessionalID,
		ServiceID:       appt.ServiceID,
		ServicePrice:    price,
		Date:            appt.Date,
		StartTime:       appt.StartTime,
		EndTime:         appt.EndTime,
		DurationMinutes: appt.DurationMinutes,
		Status:          string(appt.Status),
		Reason:          reason,
		RescheduledFrom: appt.RescheduledFrom,
		ActorID:         actorID,
	})
	return eventx.Event{
		AggregateType: aggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}
}

type reminderPayload struct {
	AppointmentID  string    `json:"appointment_id"`
	ClientID       string    `json:"client_id"`
	ProfessionalID string    `json:"professional_id,omitempty"`
	ServiceID      string    `json:"service_id"`
	Kind           string    `json:"kind"`
	Date           string    `json:"date"`
	StartTime      string    `json:"start_time"`
	SendAt         time.Time `json:"send_at"`
}

func reminderEvent(appt model.Appointment, kind string, sendAt time.Time) eventx.Event {
	payload, _ := json.Marshal(reminderPayload{
		AppointmentID:  appt.ID,
		ClientID:       appt.ClientID,
		ProfessionalID: appt.ProfessionalID,
		ServiceID:      appt.ServiceID,
		Kind:           kind,
		Date:           appt.Date,
		StartTime:      appt.StartTime,
		SendAt:         sendAt,
	})
	return eventx.Event{
		AggregateType: aggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     EventReminderRequested,
		Payload:       payload,
	}
}
