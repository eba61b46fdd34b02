// Package storage holds the reporting service's aggregate tables.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glowdesk/glowdesk/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppointmentDelta is the set of counters one lifecycle event contributes
// to its day.
type AppointmentDelta struct {
	Booked    int
	Cancelled int
	Completed int
	NoShows   int
	Revenue   string
	Minutes   int
}

// RecordAppointmentEvent stores the raw event and folds it into the daily
// aggregate plus per-service and per-professional breakdowns. The event_id
// conflict guard makes redelivery a no-op beyond the inbox dedup.
func (r *Repository) RecordAppointmentEvent(ctx context.Context, eventID, eventType, appointmentID, day, professionalID, serviceID string, delta AppointmentDelta) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO appointment_events (event_id, event_type, appointment_id, day)
		VALUES ($1, $2, $3, $4::date)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType, appointmentID, day)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	revenue := delta.Revenue
	if revenue == "" {
		revenue = "0"
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO daily_appointment_metrics (day, booked_count, cancelled_count, completed_count, no_show_count, revenue)
		VALUES ($1::date, $2, $3, $4, $5, $6::numeric)
		ON CONFLICT (day)
		DO UPDATE SET booked_count = daily_appointment_metrics.booked_count + EXCLUDED.booked_count,
		              cancelled_count = daily_appointment_metrics.cancelled_count + EXCLUDED.cancelled_count,
		              completed_count = daily_appointment_metrics.completed_count + EXCLUDED.completed_count,
		              no_show_count = daily_appointment_metrics.no_show_count + EXCLUDED.no_show_count,
		              revenue = daily_appointment_metrics.revenue + EXCLUDED.revenue,
		              updated_at = now()
	`, day, delta.Booked, delta.Cancelled, delta.Completed, delta.NoShows, revenue); err != nil {
		return err
	}

	if serviceID != "" {
		if _, err := tx.Exec(ctx, `
			INSERT INTO daily_service_metrics (day, service_id, booked_count, completed_count, revenue)
			VALUES ($1::date, $2, $3, $4, $5::numeric)
			ON CONFLICT (day, service_id)
			DO UPDATE SET booked_count = daily_service_metrics.booked_count + EXCLUDED.booked_count,
			              completed_count = daily_service_metrics.completed_count + EXCLUDED.completed_count,
			              revenue = daily_service_metrics.revenue + EXCLUDED.revenue,
			              updated_at = now()
		`, day, serviceID, delta.Booked, delta.Completed, revenue); err != nil {
			return err
		}
	}

	if professionalID != "" {
		if _, err := tx.Exec(ctx, `
			INSERT INTO daily_professional_metrics (day, professional_id, booked_count, cancelled_count, completed_count, no_show_count, completed_minutes)
			VALUES ($1::date, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (day, professional_id)
			DO UPDATE SET booked_count = daily_professional_metrics.booked_count + EXCLUDED.booked_count,
			              cancelled_count = daily_professional_metrics.cancelled_count + EXCLUDED.cancelled_count,
			              completed_count = daily_professional_metrics.completed_count + EXCLUDED.completed_count,
			              no_show_count = daily_professional_metrics.no_show_count + EXCLUDED.no_show_count,
			              completed_minutes = daily_professional_metrics.completed_minutes + EXCLUDED.completed_minutes,
			              updated_at = now()
		`, day, professionalID, delta.Booked, delta.Cancelled, delta.Completed, delta.NoShows, delta.Minutes); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repository) BumpNotification(ctx context.Context, day, channel string, sentInc, failedInc int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_notification_metrics (day, channel, sent_count, failed_count)
		VALUES ($1::date, $2, $3, $4)
		ON CONFLICT (day, channel)
		DO UPDATE SET sent_count = daily_notification_metrics.sent_count + EXCLUDED.sent_count,
		              failed_count = daily_notification_metrics.failed_count + EXCLUDED.failed_count,
		              updated_at = now()
	`, day, channel, sentInc, failedInc)
	return err
}

func (r *Repository) InsertDLQEvent(ctx context.Context, appointmentID, clientID, kind, reason string, failedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminder_dlq_events (appointment_id, client_id, kind, error_reason, failed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, appointmentID, clientID, kind, reason, failedAt)
	return err
}

func (r *Repository) InsertSecurityAudit(ctx context.Context, action, actorID string, detail json.RawMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO security_audit_events (action, actor_id, detail)
		VALUES ($1, NULLIF($2, ''), $3)
	`, action, actorID, detail)
	return err
}

type DailyAppointments struct {
	Day       string `json:"day"`
	Booked    int    `json:"booked"`
	Cancelled int    `json:"cancelled"`
	Completed int    `json:"completed"`
	NoShows   int    `json:"no_shows"`
	Revenue   string `json:"revenue"`
}

func (r *Repository) AppointmentReport(ctx context.Context, from, to string) ([]DailyAppointments, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day::text, booked_count, cancelled_count, completed_count, no_show_count, revenue::text
		FROM daily_appointment_metrics
		WHERE day BETWEEN $1::date AND $2::date
		ORDER BY day
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyAppointments
	for rows.Next() {
		var d DailyAppointments
		if err := rows.Scan(&d.Day, &d.Booked, &d.Cancelled, &d.Completed, &d.NoShows, &d.Revenue); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type ServiceRevenue struct {
	ServiceID string `json:"service_id"`
	Booked    int    `json:"booked"`
	Completed int    `json:"completed"`
	Revenue   string `json:"revenue"`
}

// ServiceRevenueReport sums per-service activity over the range, highest
// revenue first.
func (r *Repository) ServiceRevenueReport(ctx context.Context, from, to string) ([]ServiceRevenue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT service_id, SUM(booked_count)::int, SUM(completed_count)::int, SUM(revenue)::text
		FROM daily_service_metrics
		WHERE day BETWEEN $1::date AND $2::date
		GROUP BY service_id
		ORDER BY SUM(revenue) DESC, service_id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServiceRevenue
	for rows.Next() {
		var s ServiceRevenue
		if err := rows.Scan(&s.ServiceID, &s.Booked, &s.Completed, &s.Revenue); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type ProfessionalUtilization struct {
	ProfessionalID   string `json:"professional_id"`
	Booked           int    `json:"booked"`
	Cancelled        int    `json:"cancelled"`
	Completed        int    `json:"completed"`
	NoShows          int    `json:"no_shows"`
	CompletedMinutes int    `json:"completed_minutes"`
}

func (r *Repository) ProfessionalUtilizationReport(ctx context.Context, from, to string) ([]ProfessionalUtilization, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT professional_id, SUM(booked_count)::int, SUM(cancelled_count)::int,
		       SUM(completed_count)::int, SUM(no_show_count)::int, SUM(completed_minutes)::int
		FROM daily_professional_metrics
		WHERE day BETWEEN $1::date AND $2::date
		GROUP BY professional_id
		ORDER BY SUM(completed_minutes) DESC, professional_id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProfessionalUtilization
	for rows.Next() {
		var p ProfessionalUtilization
		if err := rows.Scan(&p.ProfessionalID, &p.Booked, &p.Cancelled, &p.Completed, &p.NoShows, &p.CompletedMinutes); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type DailyNotifications struct {
	Day     string `json:"day"`
	Channel string `json:"channel"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
}

func (r *Repository) NotificationReport(ctx context.Context, from, to string) ([]DailyNotifications, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day::text, channel, sent_count, failed_count
		FROM daily_notification_metrics
		WHERE day BETWEEN $1::date AND $2::date
		ORDER BY day, channel
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyNotifications
	for rows.Next() {
		var d DailyNotifications
		if err := rows.Scan(&d.Day, &d.Channel, &d.Sent, &d.Failed); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type DLQEvent struct {
	AppointmentID string    `json:"appointment_id"`
	ClientID      string    `json:"client_id"`
	Kind          string    `json:"kind"`
	ErrorReason   string    `json:"error_reason"`
	FailedAt      time.Time `json:"failed_at"`
}

func (r *Repository) RecentDLQEvents(ctx context.Context, limit int) ([]DLQEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT appointment_id, client_id, kind, error_reason, failed_at
		FROM reminder_dlq_events
		ORDER BY failed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DLQEvent
	for rows.Next() {
		var d DLQEvent
		if err := rows.Scan(&d.AppointmentID, &d.ClientID, &d.Kind, &d.ErrorReason, &d.FailedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
