package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedItem inserts an item with its stock row directly and returns the item
// id and the stock id.
func SeedItem(t *testing.T, pool *pgxpool.Pool, name, quantity string) (uuid.UUID, int64) {
	t.Helper()
	ctx := context.Background()

	id := uuid.New()
	if _, err := pool.Exec(ctx, `INSERT INTO items (id, name) VALUES ($1, $2)`, id, name); err != nil {
		t.Fatalf("testhelper: SeedItem insert item: %v", err)
	}

	var stockID int64
	err := pool.QueryRow(ctx,
		`INSERT INTO stocks (item_id, quantity) VALUES ($1, $2::numeric) RETURNING id`,
		id, quantity,
	).Scan(&stockID)
	if err != nil {
		t.Fatalf("testhelper: SeedItem insert stock: %v", err)
	}
	return id, stockID
}

// ItemExists reports whether an item row with id exists.
func ItemExists(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(context.Background(), `SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		t.Fatalf("testhelper: ItemExists: %v", err)
	}
	return exists
}
