// Package storage persists the clinic directory: profile, clients,
// professionals with weekly schedules and time off, and the service
// catalog. Writes that other services cache also insert an outbox event
// in the same transaction.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/libs/eventx"
)

type Repository struct {
	pool   *db.Pool
	outbox *eventx.OutboxRepository
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool, outbox: eventx.NewOutboxRepository(pool)}
}

// ClinicProfile is the single clinic's settings, including the geofence
// used to flag remote time-clock punches.
type ClinicProfile struct {
	Name          string
	Timezone      string
	GeofenceLat   float64
	GeofenceLng   float64
	GeofenceMeter float64
}

func (r *Repository) GetProfile(ctx context.Context) (ClinicProfile, error) {
	// A default row is created if missing so a fresh install works.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinic_profile (id) VALUES (1)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return ClinicProfile{}, err
	}
	var p ClinicProfile
	err = r.pool.QueryRow(ctx, `
		SELECT name, timezone, geofence_lat, geofence_lng, geofence_radius_meters
		FROM clinic_profile WHERE id = 1
	`).Scan(&p.Name, &p.Timezone, &p.GeofenceLat, &p.GeofenceLng, &p.GeofenceMeter)
	return p, err
}

func (r *Repository) UpdateProfile(ctx context.Context, p ClinicProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinic_profile (id, name, timezone, geofence_lat, geofence_lng, geofence_radius_meters)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			geofence_lat = EXCLUDED.geofence_lat,
			geofence_lng = EXCLUDED.geofence_lng,
			geofence_radius_meters = EXCLUDED.geofence_radius_meters,
			updated_at = now()
	`, p.Name, p.Timezone, p.GeofenceLat, p.GeofenceLng, p.GeofenceMeter)
	return err
}

type Client struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Notes     string
	Active    bool
	CreatedAt time.Time
}

func (r *Repository) CreateClient(ctx context.Context, c Client) (string, error) {
	c.ID = uuid.NewString()
	c.Active = true
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO clients (id, name, email, phone, notes, active)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, c.ID, c.Name, c.Email, c.Phone, c.Notes, c.Active)
		if err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, clientEvent(c))
	})
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (r *Repository) UpdateClient(ctx context.Context, c Client) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE clients SET name = $2, email = $3, phone = $4, notes = $5, active = $6
			WHERE id = $1
		`, c.ID, c.Name, c.Email, c.Phone, c.Notes, c.Active)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return r.outbox.Insert(ctx, tx, clientEvent(c))
	})
}

func (r *Repository) GetClient(ctx context.Context, id string) (Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, notes, active, created_at
		FROM clients WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.Active, &c.CreatedAt)
	return c, err
}

func (r *Repository) ListClients(ctx context.Context, search string, limit int) ([]Client, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, phone, notes, active, created_at
		FROM clients
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR phone LIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2
	`, search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type Professional struct {
	ID        string
	Name      string
	Specialty string
	Active    bool
	CreatedAt time.Time
}

// ScheduleEntry is one weekday of a professional's weekly schedule, in
// minutes of the day. Weekday follows time.Weekday (0 = Sunday).
type ScheduleEntry struct {
	Weekday     int
	StartMinute int
	EndMinute   int
	IsActive    bool
}

// defaultSchedule is Monday through Friday, 08:00 to 18:00.
func defaultSchedule() []ScheduleEntry {
	var out []ScheduleEntry
	for wd := 0; wd <= 6; wd++ {
		working := wd >= 1 && wd <= 5
		e := ScheduleEntry{Weekday: wd, IsActive: working}
		if working {
			e.StartMinute = 8 * 60
			e.EndMinute = 18 * 60
		}
		out = append(out, e)
	}
	return out
}

// CreateProfessional inserts the professional with the default weekly
// schedule and broadcasts both.
func (r *Repository) CreateProfessional(ctx context.Context, p Professional) (string, error) {
	p.ID = uuid.NewString()
	p.Active = true
	entries := defaultSchedule()
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO professionals (id, name, specialty, active)
			VALUES ($1, $2, $3, $4)
		`, p.ID, p.Name, p.Specialty, p.Active)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if _, err := tx.Exec(ctx, `
				INSERT INTO professional_schedules (professional_id, weekday, start_minute, end_minute, is_active)
				VALUES ($1, $2, $3, $4, $5)
			`, p.ID, e.Weekday, e.StartMinute, e.EndMinute, e.IsActive); err != nil {
				return err
			}
		}
		if err := r.outbox.Insert(ctx, tx, professionalEvent(p)); err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, scheduleEvent(p.ID, entries))
	})
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (r *Repository) UpdateProfessional(ctx context.Context, p Professional) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE professionals SET name = $2, specialty = $3, active = $4
			WHERE id = $1
		`, p.ID, p.Name, p.Specialty, p.Active)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return r.outbox.Insert(ctx, tx, professionalEvent(p))
	})
}

func (r *Repository) ListProfessionals(ctx context.Context, limit int) ([]Professional, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, active, created_at
		FROM professionals
		ORDER BY name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Professional
	for rows.Next() {
		var p Professional
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) GetSchedule(ctx context.Context, professionalID string) ([]ScheduleEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute, is_active
		FROM professional_schedules
		WHERE professional_id = $1
		ORDER BY weekday
	`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduleEntry
	for rows.Next() {
		var e ScheduleEntry
		if err := rows.Scan(&e.Weekday, &e.StartMinute, &e.EndMinute, &e.IsActive); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplaceSchedule swaps the whole week in one transaction and broadcasts
// the new schedule.
func (r *Repository) ReplaceSchedule(ctx context.Context, professionalID string, entries []ScheduleEntry) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM professionals WHERE id = $1)
		`, professionalID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		if _, err := tx.Exec(ctx, `DELETE FROM professional_schedules WHERE professional_id = $1`, professionalID); err != nil {
			return err
		}
		for _, e := range entries {
			if _, err := tx.Exec(ctx, `
				INSERT INTO professional_schedules (professional_id, weekday, start_minute, end_minute, is_active)
				VALUES ($1, $2, $3, $4, $5)
			`, professionalID, e.Weekday, e.StartMinute, e.EndMinute, e.IsActive); err != nil {
				return err
			}
		}
		return r.outbox.Insert(ctx, tx, scheduleEvent(professionalID, entries))
	})
}

type CatalogService struct {
	ID              string
	Name            string
	Description     string
	DurationMinutes int
	Price           string
	Active          bool
	CreatedAt       time.Time
}

func (r *Repository) CreateService(ctx context.Context, s CatalogService) (string, error) {
	s.ID = uuid.NewString()
	s.Active = true
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO catalog_services (id, name, description, duration_minutes, price, active)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, s.ID, s.Name, s.Description, s.DurationMinutes, s.Price, s.Active)
		if err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, serviceEvent(s))
	})
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

func (r *Repository) UpdateService(ctx context.Context, s CatalogService) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE catalog_services
			SET name = $2, description = $3, duration_minutes = $4, price = $5, active = $6
			WHERE id = $1
		`, s.ID, s.Name, s.Description, s.DurationMinutes, s.Price, s.Active)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return r.outbox.Insert(ctx, tx, serviceEvent(s))
	})
}

func (r *Repository) GetService(ctx context.Context, id string) (CatalogService, error) {
	var s CatalogService
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, duration_minutes, price::text, active, created_at
		FROM catalog_services WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price, &s.Active, &s.CreatedAt)
	return s, err
}

func (r *Repository) ListServices(ctx context.Context, limit int) ([]CatalogService, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, duration_minutes, price::text, active, created_at
		FROM catalog_services
		ORDER BY name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CatalogService
	for rows.Next() {
		var s CatalogService
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type TimeOff struct {
	ID             string
	ProfessionalID string
	StartTime      time.Time
	EndTime        time.Time
	Reason         string
	CreatedAt      time.Time
}

func (r *Repository) CreateTimeOff(ctx context.Context, professionalID string, start, end time.Time, reason string) (string, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM professionals WHERE id = $1)
	`, professionalID).Scan(&exists); err != nil {
		return "", err
	}
	if !exists {
		return "", pgx.ErrNoRows
	}

	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO professional_time_off (id, professional_id, start_time, end_time, reason)
		VALUES ($1, $2, $3, $4, $5)
	`, id, professionalID, start, end, reason)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) ListTimeOff(ctx context.Context, professionalID string, from, to time.Time, limit int) ([]TimeOff, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, professional_id, start_time, end_time, reason, created_at
		FROM professional_time_off
		WHERE professional_id = $1 AND end_time > $2 AND start_time < $3
		ORDER BY start_time
		LIMIT $4
	`, professionalID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimeOff
	for rows.Next() {
		var t TimeOff
		if err := rows.Scan(&t.ID, &t.ProfessionalID, &t.StartTime, &t.EndTime, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteTimeOff(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM professional_time_off WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
