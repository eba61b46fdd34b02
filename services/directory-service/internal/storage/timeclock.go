package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Punch is a time-clock entry. Punches outside the clinic geofence or
// the professional's schedule window are accepted but flagged for a
// manager to review.
type Punch struct {
	ID              string
	ProfessionalID  string
	Kind            string // "in" or "out"
	OccurredAt      time.Time
	PhotoRef        string
	Lat             float64
	Lng             float64
	DistanceMeters  float64
	Flagged         bool
	OutsideSchedule bool
}

func (r *Repository) CreatePunch(ctx context.Context, p Punch) (string, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM professionals WHERE id = $1)
	`, p.ProfessionalID).Scan(&exists); err != nil {
		return "", err
	}
	if !exists {
		return "", pgx.ErrNoRows
	}

	p.ID = uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO timeclock_punches (id, professional_id, kind, occurred_at, photo_ref, lat, lng, distance_meters, flagged, outside_schedule)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.ProfessionalID, p.Kind, p.OccurredAt, p.PhotoRef, p.Lat, p.Lng, p.DistanceMeters, p.Flagged, p.OutsideSchedule)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// LastPunch returns the professional's most recent punch, used to enforce
// in/out alternation.
func (r *Repository) LastPunch(ctx context.Context, professionalID string) (Punch, bool, error) {
	var p Punch
	err := r.pool.QueryRow(ctx, `
		SELECT id, professional_id, kind, occurred_at, photo_ref, lat, lng, distance_meters, flagged, outside_schedule
		FROM timeclock_punches
		WHERE professional_id = $1
		ORDER BY occurred_at DESC
		LIMIT 1
	`, professionalID).Scan(&p.ID, &p.ProfessionalID, &p.Kind, &p.OccurredAt, &p.PhotoRef, &p.Lat, &p.Lng, &p.DistanceMeters, &p.Flagged, &p.OutsideSchedule)
	if err == pgx.ErrNoRows {
		return Punch{}, false, nil
	}
	if err != nil {
		return Punch{}, false, err
	}
	return p, true, nil
}

func (r *Repository) ListPunches(ctx context.Context, professionalID string, from, to time.Time, limit int) ([]Punch, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, professional_id, kind, occurred_at, photo_ref, lat, lng, distance_meters, flagged, outside_schedule
		FROM timeclock_punches
		WHERE professional_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at
		LIMIT $4
	`, professionalID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Punch
	for rows.Next() {
		var p Punch
		if err := rows.Scan(&p.ID, &p.ProfessionalID, &p.Kind, &p.OccurredAt, &p.PhotoRef, &p.Lat, &p.Lng, &p.DistanceMeters, &p.Flagged, &p.OutsideSchedule); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
