// Package audit records security-relevant actions (logins, role changes,
// key rotations) both in a local table and on the outbox.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/libs/eventx"
)

type Entry struct {
	ID        string          `json:"id"`
	ActorID   string          `json:"actor_id"`
	Action    string          `json:"action"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Repository struct {
	pool   *db.Pool
	outbox *eventx.OutboxRepository
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool, outbox: eventx.NewOutboxRepository(pool)}
}

func (r *Repository) Record(ctx context.Context, actorID, action string, detail any) error {
	var raw []byte
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		raw = b
	}
	id := uuid.NewString()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_events (id, actor_id, action, detail)
		VALUES ($1, $2, $3, $4)
	`, id, actorID, action, raw)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"audit_id": id,
		"actor_id": actorID,
		"action":   action,
	})
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, eventx.Event{
		AggregateType: "audit",
		AggregateID:   id,
		EventType:     "auth.audit.v1",
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, action, detail, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
