// Package availability answers whether a time interval can be booked and
// enumerates the bookable slots of a day. It reads appointments and
// working-hour windows through narrow source interfaces so the same logic
// runs against the database inside a booking transaction and against
// in-memory fixtures in tests.
package availability

import (
	"context"
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/timegrid"
)

// BusyInterval is an existing appointment projected onto the day's grid.
type BusyInterval struct {
	AppointmentID string
	Start         timegrid.ClockTime
	End           timegrid.ClockTime
}

// Window is a working-hours span on a single day.
type Window struct {
	Start timegrid.ClockTime
	End   timegrid.ClockTime
}

// Contains reports whether [start, end) lies entirely inside the window.
func (w Window) Contains(start, end timegrid.ClockTime) bool {
	return start >= w.Start && end <= w.End
}

// AppointmentSource lists slot-blocking appointments for a date. When
// professionalID is empty it must return every blocking appointment on the
// date; excludeID removes one appointment from consideration (used when
// rescheduling).
type AppointmentSource interface {
	ListActive(ctx context.Context, date, professionalID, excludeID string) ([]BusyInterval, error)
}

// ScheduleSource resolves a professional's active working window for a
// weekday. The second return is false when the professional does not work
// that day.
type ScheduleSource interface {
	ActiveWindow(ctx context.Context, professionalID string, weekday time.Weekday) (Window, bool, error)
}

// Checker decides whether a candidate interval is bookable.
type Checker struct {
	appointments AppointmentSource
	schedules    ScheduleSource
}

func NewChecker(appointments AppointmentSource, schedules ScheduleSource) *Checker {
	return &Checker{appointments: appointments, schedules: schedules}
}

// Query is a candidate interval on a given date. ProfessionalID may be
// empty, in which case the interval is checked against every appointment
// on the date and no working-hours window applies. ExcludeAppointmentID
// skips one existing appointment, for reschedule checks.
type Query struct {
	Date                 string
	Start                timegrid.ClockTime
	End                  timegrid.ClockTime
	ProfessionalID       string
	ExcludeAppointmentID string
}

// IsAvailable reports whether the queried interval can be booked: the
// professional (when named) works a window that contains it, and no
// blocking appointment overlaps it. Intervals are half-open, so an
// appointment ending exactly when the candidate starts does not conflict.
func (c *Checker) IsAvailable(ctx context.Context, q Query) (bool, error) {
	if q.ProfessionalID != "" {
		weekday, err := timegrid.Weekday(q.Date)
		if err != nil {
			return false, err
		}
		window, works, err := c.schedules.ActiveWindow(ctx, q.ProfessionalID, weekday)
		if err != nil {
			return false, err
		}
		if !works || !window.Contains(q.Start, q.End) {
			return false, nil
		}
	}
	busy, err := c.appointments.ListActive(ctx, q.Date, q.ProfessionalID, q.ExcludeAppointmentID)
	if err != nil {
		return false, err
	}
	for _, b := range busy {
		if timegrid.Overlaps(q.Start, q.End, b.Start, b.End) {
			return false, nil
		}
	}
	return true, nil
}
