package storage

import (
	"context"
	"time"

	"github.com/glowdesk/glowdesk/libs/db"
)

type Notification struct {
	ID            int64     `json:"id"`
	AppointmentID string    `json:"appointment_id"`
	ClientID      string    `json:"client_id"`
	Kind          string    `json:"kind"`
	Channel       string    `json:"channel"`
	Recipient     string    `json:"recipient"`
	Body          string    `json:"body"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, client_id, kind, channel, recipient, body, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.AppointmentID, n.ClientID, n.Kind, n.Channel, n.Recipient, n.Body, n.Status, n.FailureReason)
	return err
}

func (r *Repository) ListByAppointment(ctx context.Context, appointmentID string) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, client_id, kind, channel, recipient, body, status, failure_reason, created_at
		FROM notifications
		WHERE appointment_id = $1
		ORDER BY created_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.AppointmentID, &n.ClientID, &n.Kind, &n.Channel, &n.Recipient, &n.Body, &n.Status, &n.FailureReason, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
