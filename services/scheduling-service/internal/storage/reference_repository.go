package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/scheduling"
)

// ReferenceRepository holds the local copy of directory data (clients,
// professionals, catalog services and working schedules) kept fresh by
// consuming directory events. Booking never calls the directory service
// synchronously.
type ReferenceRepository struct {
	pool *db.Pool
}

func NewReferenceRepository(pool *db.Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

func (r *ReferenceRepository) ClientExists(ctx context.Context, id string) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT active FROM ref_clients WHERE id = $1`, id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup client: %w", err)
	}
	return active, nil
}

func (r *ReferenceRepository) ProfessionalExists(ctx context.Context, id string) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT active FROM ref_professionals WHERE id = $1`, id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup professional: %w", err)
	}
	return active, nil
}

func (r *ReferenceRepository) GetService(ctx context.Context, id string) (scheduling.CatalogService, bool, error) {
	var svc scheduling.CatalogService
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, duration_minutes, price, active FROM ref_services WHERE id = $1`, id).
		Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.Price, &svc.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return scheduling.CatalogService{}, false, nil
	}
	if err != nil {
		return scheduling.CatalogService{}, false, fmt.Errorf("lookup service: %w", err)
	}
	return svc, true, nil
}

func (r *ReferenceRepository) UpsertClient(ctx context.Context, id, name, email, phone string, active bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ref_clients (id, name, email, phone, active)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = $2, email = $3, phone = $4, active = $5`,
		id, name, email, phone, active)
	if err != nil {
		return fmt.Errorf("upsert client: %w", err)
	}
	return nil
}

func (r *ReferenceRepository) UpsertProfessional(ctx context.Context, id, name string, active bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ref_professionals (id, name, active)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = $2, active = $3`,
		id, name, active)
	if err != nil {
		return fmt.Errorf("upsert professional: %w", err)
	}
	return nil
}

func (r *ReferenceRepository) UpsertService(ctx context.Context, id, name string, durationMinutes int, price string, active bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ref_services (id, name, duration_minutes, price, active)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = $2, duration_minutes = $3, price = $4, active = $5`,
		id, name, durationMinutes, price, active)
	if err != nil {
		return fmt.Errorf("upsert service: %w", err)
	}
	return nil
}

// ScheduleEntry is one weekday window of a professional's schedule, in
// minutes of the day.
type ScheduleEntry struct {
	Weekday     int
	StartMinute int
	EndMinute   int
	IsActive    bool
}

// ReplaceSchedule swaps a professional's whole weekly schedule in one
// transaction, so a consumer replaying a schedule event leaves no stale
// weekday rows behind.
func (r *ReferenceRepository) ReplaceSchedule(ctx context.Context, professionalID string, entries []ScheduleEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM professional_schedules WHERE professional_id = $1`, professionalID); err != nil {
		return fmt.Errorf("clear schedule: %w", err)
	}
	for _, e := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO professional_schedules (professional_id, weekday, start_minute, end_minute, is_active)
			 VALUES ($1, $2, $3, $4, $5)`,
			professionalID, e.Weekday, e.StartMinute, e.EndMinute, e.IsActive)
		if err != nil {
			return fmt.Errorf("insert schedule row: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
