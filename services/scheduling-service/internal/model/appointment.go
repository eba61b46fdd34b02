package model

import "time"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

// Blocks reports whether an appointment in this state still occupies its
// time slot. Cancelled and no-show appointments free the slot.
func (s Status) Blocks() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Type classifies what kind of visit the appointment is.
type Type string

const (
	TypeService      Type = "service"
	TypeConsultation Type = "consultation"
	TypeFollowUp     Type = "follow_up"
	TypeAssessment   Type = "assessment"
)

func ValidType(t Type) bool {
	switch t {
	case TypeService, TypeConsultation, TypeFollowUp, TypeAssessment:
		return true
	}
	return false
}

// Priority orders appointments for front-desk triage. It has no effect on
// slot admission.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Appointment is a booked slot on the clinic calendar. Date is stored as
// "YYYY-MM-DD" and times as "HH:MM" in the clinic's local wall clock; no
// timezone conversion is applied anywhere in the service.
type Appointment struct {
	ID                 string    `json:"id"`
	ClientID           string    `json:"client_id"`
	ProfessionalID     string    `json:"professional_id,omitempty"`
	ServiceID          string    `json:"service_id"`
	Date               string    `json:"date"`
	StartTime          string    `json:"start_time"`
	EndTime            string    `json:"end_time"`
	DurationMinutes    int       `json:"duration_minutes"`
	Type               Type      `json:"type"`
	Priority           Priority  `json:"priority"`
	Status             Status    `json:"status"`
	Notes              string    `json:"notes,omitempty"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	RescheduledFrom    string    `json:"rescheduled_from,omitempty"`
	CreatedBy          string    `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
