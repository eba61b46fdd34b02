package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrInsufficientStock is returned when a movement would drive an item's
// quantity below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

type InventoryItem struct {
	ID        string
	Name      string
	Unit      string
	Quantity  int
	MinLevel  int
	CreatedAt time.Time
}

// LowStock reports whether the item sits at or below its reorder level.
func (i InventoryItem) LowStock() bool {
	return i.Quantity <= i.MinLevel
}

type StockMovement struct {
	ID        string
	ItemID    string
	Delta     int
	Reason    string
	ActorID   string
	CreatedAt time.Time
}

func (r *Repository) CreateItem(ctx context.Context, item InventoryItem) (string, error) {
	item.ID = uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inventory_items (id, name, unit, quantity, min_level)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.Name, item.Unit, item.Quantity, item.MinLevel)
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

func (r *Repository) ListItems(ctx context.Context, limit int) ([]InventoryItem, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, unit, quantity, min_level, created_at
		FROM inventory_items
		ORDER BY name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InventoryItem
	for rows.Next() {
		var i InventoryItem
		if err := rows.Scan(&i.ID, &i.Name, &i.Unit, &i.Quantity, &i.MinLevel, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// RecordMovement appends to the stock ledger and adjusts the item's
// quantity in one transaction. The row lock on the item serializes
// concurrent adjustments.
func (r *Repository) RecordMovement(ctx context.Context, m StockMovement) (InventoryItem, error) {
	var item InventoryItem
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id, name, unit, quantity, min_level, created_at
			FROM inventory_items WHERE id = $1
			FOR UPDATE
		`, m.ItemID).Scan(&item.ID, &item.Name, &item.Unit, &item.Quantity, &item.MinLevel, &item.CreatedAt)
		if err != nil {
			return err
		}
		next := item.Quantity + m.Delta
		if next < 0 {
			return ErrInsufficientStock
		}
		if _, err := tx.Exec(ctx, `
			UPDATE inventory_items SET quantity = $2 WHERE id = $1
		`, m.ItemID, next); err != nil {
			return err
		}
		m.ID = uuid.NewString()
		if _, err := tx.Exec(ctx, `
			INSERT INTO stock_movements (id, item_id, delta, reason, actor_id)
			VALUES ($1, $2, $3, $4, $5)
		`, m.ID, m.ItemID, m.Delta, m.Reason, m.ActorID); err != nil {
			return err
		}
		item.Quantity = next
		return nil
	})
	if err != nil {
		return InventoryItem{}, err
	}
	return item, nil
}

func (r *Repository) ListMovements(ctx context.Context, itemID string, limit int) ([]StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, delta, reason, actor_id, created_at
		FROM stock_movements
		WHERE item_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Delta, &m.Reason, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
