// Package storage is the pgx-backed persistence for the scheduling
// service: appointments, the outbox, and the locally cached directory
// reference data.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/libs/eventx"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/availability"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/scheduling"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/timegrid"
)

type AppointmentRepository struct {
	pool   *db.Pool
	outbox *eventx.OutboxRepository
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: eventx.NewOutboxRepository(pool)}
}

// WithSlotLock runs fn in a transaction that first takes the advisory
// lock for the booking date. The lock serializes every admission check
// and insert touching that date, which closes the race between checking
// a slot and writing it. Date granularity is deliberate: appointments
// without a professional conflict with every appointment on the date, so
// a per-professional lock would not cover them.
func (r *AppointmentRepository) WithSlotLock(ctx context.Context, date string, fn func(tx scheduling.StoreTx) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "appointments:"+date); err != nil {
			return fmt.Errorf("acquire booking lock: %w", err)
		}
		return fn(&apptTx{tx: tx, outbox: r.outbox})
	})
}

func (r *AppointmentRepository) WithTx(ctx context.Context, fn func(tx scheduling.StoreTx) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(&apptTx{tx: tx, outbox: r.outbox})
	})
}

func (r *AppointmentRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const appointmentColumns = `id, client_id, professional_id, service_id, date, start_time, end_time,
	duration_minutes, type, priority, status, notes, cancellation_reason,
	rescheduled_from, created_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID, &a.ClientID, &a.ProfessionalID, &a.ServiceID, &a.Date,
		&a.StartTime, &a.EndTime, &a.DurationMinutes, &a.Type, &a.Priority,
		&a.Status, &a.Notes, &a.CancellationReason, &a.RescheduledFrom,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("appointment: %w", scheduling.ErrNotFound)
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("scan appointment: %w", err)
	}
	return a, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *AppointmentRepository) ListByDate(ctx context.Context, date, professionalID string) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE date = $1`
	args := []any{date}
	if professionalID != "" {
		query += ` AND professional_id = $2`
		args = append(args, professionalID)
	}
	query += ` ORDER BY start_time`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *AppointmentRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointments
		 WHERE client_id = $1
		 ORDER BY date DESC, start_time DESC
		 LIMIT $2`, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list client appointments: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// apptTx implements scheduling.StoreTx over a single pgx transaction.
type apptTx struct {
	tx     pgx.Tx
	outbox *eventx.OutboxRepository
}

func (t *apptTx) ListActive(ctx context.Context, date, professionalID, excludeID string) ([]availability.BusyInterval, error) {
	// Appointments without a professional block every professional, so
	// they are always included.
	query := `SELECT id, start_time, end_time FROM appointments
		WHERE date = $1 AND status NOT IN ('cancelled', 'no_show')`
	args := []any{date}
	if professionalID != "" {
		query += ` AND (professional_id = $2 OR professional_id = '')`
		args = append(args, professionalID)
	}
	if excludeID != "" {
		query += fmt.Sprintf(` AND id <> $%d`, len(args)+1)
		args = append(args, excludeID)
	}
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active appointments: %w", err)
	}
	defer rows.Close()

	var out []availability.BusyInterval
	for rows.Next() {
		var id, start, end string
		if err := rows.Scan(&id, &start, &end); err != nil {
			return nil, fmt.Errorf("scan busy interval: %w", err)
		}
		s, err := timegrid.ParseClock(start)
		if err != nil {
			return nil, err
		}
		e, err := timegrid.ParseClock(end)
		if err != nil {
			return nil, err
		}
		out = append(out, availability.BusyInterval{AppointmentID: id, Start: s, End: e})
	}
	return out, rows.Err()
}

func (t *apptTx) ActiveWindow(ctx context.Context, professionalID string, weekday time.Weekday) (availability.Window, bool, error) {
	var startMin, endMin int
	err := t.tx.QueryRow(ctx,
		`SELECT start_minute, end_minute FROM professional_schedules
		 WHERE professional_id = $1 AND weekday = $2 AND is_active`,
		professionalID, int(weekday)).Scan(&startMin, &endMin)
	if errors.Is(err, pgx.ErrNoRows) {
		return availability.Window{}, false, nil
	}
	if err != nil {
		return availability.Window{}, false, fmt.Errorf("load schedule: %w", err)
	}
	return availability.Window{
		Start: timegrid.ClockTime(startMin),
		End:   timegrid.ClockTime(endMin),
	}, true, nil
}

func (t *apptTx) Get(ctx context.Context, id string) (model.Appointment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
	return scanAppointment(row)
}

func (t *apptTx) Insert(ctx context.Context, a *model.Appointment) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO appointments (`+appointmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		a.ID, a.ClientID, a.ProfessionalID, a.ServiceID, a.Date, a.StartTime,
		a.EndTime, a.DurationMinutes, a.Type, a.Priority, a.Status, a.Notes,
		a.CancellationReason, a.RescheduledFrom, a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (t *apptTx) Update(ctx context.Context, a model.Appointment) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE appointments SET
			professional_id = $2, service_id = $3, date = $4, start_time = $5,
			end_time = $6, duration_minutes = $7, type = $8, priority = $9,
			notes = $10, updated_at = $11
		 WHERE id = $1`,
		a.ID, a.ProfessionalID, a.ServiceID, a.Date, a.StartTime, a.EndTime,
		a.DurationMinutes, a.Type, a.Priority, a.Notes, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s: %w", a.ID, scheduling.ErrNotFound)
	}
	return nil
}

func (t *apptTx) SetStatus(ctx context.Context, id string, status model.Status, reason string, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE appointments SET status = $2, cancellation_reason = $3, updated_at = $4 WHERE id = $1`,
		id, status, reason, at)
	if err != nil {
		return fmt.Errorf("set appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s: %w", id, scheduling.ErrNotFound)
	}
	return nil
}

func (t *apptTx) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete appointment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *apptTx) Emit(ctx context.Context, evt eventx.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}
