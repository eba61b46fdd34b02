package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/glowdesk/glowdesk/libs/db"
)

// Contact is the locally cached slice of a client record needed to
// deliver a reminder.
type Contact struct {
	ClientID string
	Name     string
	Email    string
	Phone    string
}

type ContactsRepository struct {
	pool *db.Pool
}

func NewContactsRepository(pool *db.Pool) *ContactsRepository {
	return &ContactsRepository{pool: pool}
}

func (r *ContactsRepository) UpsertClient(ctx context.Context, c Contact) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ref_clients (client_id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone
	`, c.ClientID, c.Name, c.Email, c.Phone)
	return err
}

func (r *ContactsRepository) GetClient(ctx context.Context, clientID string) (Contact, bool, error) {
	var c Contact
	err := r.pool.QueryRow(ctx, `
		SELECT client_id, name, email, phone
		FROM ref_clients
		WHERE client_id = $1
	`, clientID).Scan(&c.ClientID, &c.Name, &c.Email, &c.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, false, nil
	}
	if err != nil {
		return Contact{}, false, err
	}
	return c, true, nil
}

func (r *ContactsRepository) UpsertService(ctx context.Context, serviceID, name string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ref_services (service_id, name)
		VALUES ($1, $2)
		ON CONFLICT (service_id) DO UPDATE SET name = EXCLUDED.name
	`, serviceID, name)
	return err
}

func (r *ContactsRepository) ServiceName(ctx context.Context, serviceID string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `
		SELECT name FROM ref_services WHERE service_id = $1
	`, serviceID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return name, err
}
