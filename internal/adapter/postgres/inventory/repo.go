// Package inventory persists the development inventory API in PostgreSQL.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi/inventoryapitest"
	"github.com/heartmarshall/stockroom/internal/adapter/postgres"
	"github.com/heartmarshall/stockroom/internal/domain"
)

// psql builds statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// nameOrder sorts by byte order so results match the in-memory store.
const nameOrder = `i.name COLLATE "C"`

// Repo implements inventoryapitest.Backend on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	tx   *postgres.TxManager
}

var _ inventoryapitest.Backend = (*Repo)(nil)

// New creates a new inventory repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool, tx: postgres.NewTxManager(pool)}
}

func (r *Repo) q(ctx context.Context) postgres.Querier {
	return postgres.QuerierFromCtx(ctx, r.pool)
}

// ---------------------------------------------------------------------------
// Items and stock
// ---------------------------------------------------------------------------

// CreateItem inserts an item and its stock row in one transaction.
func (r *Repo) CreateItem(ctx context.Context, spec inventoryapitest.ItemSpec) (uuid.UUID, error) {
	id := uuid.New()
	unit := spec.Unit
	if unit == "" {
		unit = inventoryapitest.DefaultUnit
	}

	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := r.exec(ctx, psql.Insert("items").
			Columns("id", "sku", "name", "unit").
			Values(id, optional(spec.SKU), spec.Name, unit)); err != nil {
			return postgres.MapError(err, "item", id)
		}
		err := r.exec(ctx, psql.Insert("stocks").
			Columns("item_id", "quantity", "shelf_location", "shelf_location_note").
			Values(id, spec.Quantity.String(), optional(spec.ShelfLocation), optional(spec.ShelfNote)))
		return postgres.MapError(err, "stock", id)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ListItems returns every item, newest first.
func (r *Repo) ListItems(ctx context.Context) ([]inventoryapitest.Item, error) {
	return r.queryItems(ctx, psql.Select("i.id", "i.sku", "i.name", "i.unit").
		From("items i").
		OrderBy("i.seq DESC"))
}

// SearchItems matches q anywhere in the name, ignoring case.
func (r *Repo) SearchItems(ctx context.Context, q string, limit int) ([]inventoryapitest.Item, error) {
	return r.queryItems(ctx, psql.Select("i.id", "i.sku", "i.name", "i.unit").
		From("items i").
		Where(squirrel.ILike{"i.name": "%" + escapeLike(q) + "%"}).
		OrderBy(nameOrder, "i.seq").
		Limit(uint64(limit)))
}

func (r *Repo) queryItems(ctx context.Context, sb squirrel.SelectBuilder) ([]inventoryapitest.Item, error) {
	rows, err := r.query(ctx, sb)
	if err != nil {
		return nil, postgres.MapError(err, "items", "list")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventoryapitest.Item, error) {
		var it inventoryapitest.Item
		err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Unit)
		return it, err
	})
	if err != nil {
		return nil, postgres.MapError(err, "items", "list")
	}
	return items, nil
}

// ListStocks returns every stock row with its item, sorted by item name.
func (r *Repo) ListStocks(ctx context.Context) ([]inventoryapitest.StockRow, error) {
	rows, err := r.query(ctx, psql.Select(
		"s.id", "i.id", "i.sku", "i.name", "i.unit",
		"s.quantity::text", "s.shelf_location", "s.shelf_location_note", "s.updated_at",
	).
		From("stocks s").
		Join("items i ON i.id = s.item_id").
		OrderBy(nameOrder, "s.id"))
	if err != nil {
		return nil, postgres.MapError(err, "stocks", "list")
	}
	stocks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventoryapitest.StockRow, error) {
		var (
			st  inventoryapitest.StockRow
			qty string
		)
		if err := row.Scan(&st.ID, &st.Item.ID, &st.Item.SKU, &st.Item.Name, &st.Item.Unit,
			&qty, &st.ShelfLocation, &st.ShelfLocationNote, &st.UpdatedAt); err != nil {
			return st, err
		}
		var err error
		st.Quantity, err = decimal.NewFromString(qty)
		return st, err
	})
	if err != nil {
		return nil, postgres.MapError(err, "stocks", "list")
	}
	return stocks, nil
}

// UpdateShelf changes the flagged shelf fields of one stock row.
func (r *Repo) UpdateShelf(ctx context.Context, stockID int64, p inventoryapitest.ShelfPatch) error {
	ub := psql.Update("stocks").
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": stockID})
	if p.SetLocation {
		ub = ub.Set("shelf_location", p.Location)
	}
	if p.SetNote {
		ub = ub.Set("shelf_location_note", p.Note)
	}

	sql, args, err := ub.ToSql()
	if err != nil {
		return fmt.Errorf("build update stock: %w", err)
	}
	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "stock", stockID)
	}
	if tag.RowsAffected() == 0 {
		return inventoryapitest.ErrStockNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

var txnColumns = []string{
	"t.id", "t.item_id", "t.delta::text", "t.txn_type", "t.reason", "t.reverses_id", "t.created_at",
}

// ItemTransactions returns an item's ledger, newest first.
func (r *Repo) ItemTransactions(ctx context.Context, itemID uuid.UUID, limit int) ([]inventoryapitest.Txn, error) {
	var exists bool
	if err := r.q(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)`, itemID).Scan(&exists); err != nil {
		return nil, postgres.MapError(err, "item", itemID)
	}
	if !exists {
		return nil, inventoryapitest.ErrItemNotFound
	}

	rows, err := r.query(ctx, psql.Select(txnColumns...).
		From("stock_transactions t").
		Where(squirrel.Eq{"t.item_id": itemID}).
		OrderBy("t.seq DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, postgres.MapError(err, "transactions", itemID)
	}
	txns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventoryapitest.Txn, error) {
		return scanTxn(row)
	})
	if err != nil {
		return nil, postgres.MapError(err, "transactions", itemID)
	}
	return txns, nil
}

// ListTransactions returns one page of the global ledger with each entry's
// item, and the total number of entries.
func (r *Repo) ListTransactions(ctx context.Context, limit, offset int) ([]inventoryapitest.Txn, int, error) {
	var total int
	if err := r.q(ctx).QueryRow(ctx, `SELECT count(*) FROM stock_transactions`).Scan(&total); err != nil {
		return nil, 0, postgres.MapError(err, "transactions", "count")
	}

	cols := append(append([]string{}, txnColumns...), "i.sku", "i.name", "i.unit")
	rows, err := r.query(ctx, psql.Select(cols...).
		From("stock_transactions t").
		Join("items i ON i.id = t.item_id").
		OrderBy("t.seq DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, 0, postgres.MapError(err, "transactions", "list")
	}
	txns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventoryapitest.Txn, error) {
		var (
			t     inventoryapitest.Txn
			it    inventoryapitest.Item
			delta string
		)
		if err := row.Scan(&t.ID, &t.ItemID, &delta, &t.Type, &t.Reason, &t.ReversesID, &t.CreatedAt,
			&it.SKU, &it.Name, &it.Unit); err != nil {
			return t, err
		}
		it.ID = t.ItemID
		t.Item = &it
		var err error
		t.Delta, err = decimal.NewFromString(delta)
		return t, err
	})
	if err != nil {
		return nil, 0, postgres.MapError(err, "transactions", "list")
	}
	return txns, total, nil
}

// PostDelta changes an item's stock by delta and records the transaction.
func (r *Repo) PostDelta(ctx context.Context, itemID uuid.UUID, delta decimal.Decimal, typ string, reason *string) (*inventoryapitest.Txn, error) {
	var out *inventoryapitest.Txn
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		qty, err := r.lockStock(ctx, itemID)
		if err != nil {
			return err
		}
		out, err = r.applyDelta(ctx, itemID, qty, delta, typ, reason, nil)
		return err
	})
	return out, err
}

// Reverse records the opposite of a transaction. A second reversal of the
// same transaction fails with ErrAlreadyReversed.
func (r *Repo) Reverse(ctx context.Context, txnID uuid.UUID) (*inventoryapitest.Txn, error) {
	var out *inventoryapitest.Txn
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		var (
			itemID uuid.UUID
			delta  string
		)
		err := r.q(ctx).QueryRow(ctx,
			`SELECT item_id, delta::text FROM stock_transactions WHERE id = $1`, txnID,
		).Scan(&itemID, &delta)
		if errors.Is(err, pgx.ErrNoRows) {
			return inventoryapitest.ErrTxnNotFound
		}
		if err != nil {
			return postgres.MapError(err, "transaction", txnID)
		}

		var reversed bool
		err = r.q(ctx).QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM stock_transactions WHERE reverses_id = $1)`, txnID,
		).Scan(&reversed)
		if err != nil {
			return postgres.MapError(err, "transaction", txnID)
		}
		if reversed {
			return inventoryapitest.ErrAlreadyReversed
		}

		d, err := decimal.NewFromString(delta)
		if err != nil {
			return fmt.Errorf("transaction %s: parse delta: %w", txnID, err)
		}
		qty, err := r.lockStock(ctx, itemID)
		if err != nil {
			return err
		}
		reason := inventoryapitest.ReversalReason(txnID)
		out, err = r.applyDelta(ctx, itemID, qty, d.Neg(), "REVERSAL", &reason, &txnID)
		if errors.Is(err, domain.ErrConflict) {
			return inventoryapitest.ErrAlreadyReversed
		}
		return err
	})
	return out, err
}

// lockStock returns an item's quantity and holds its stock row until the
// transaction ends.
func (r *Repo) lockStock(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	var qty string
	err := r.q(ctx).QueryRow(ctx,
		`SELECT quantity::text FROM stocks WHERE item_id = $1 FOR UPDATE`, itemID,
	).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, inventoryapitest.ErrItemNotFound
	}
	if err != nil {
		return decimal.Zero, postgres.MapError(err, "stock", itemID)
	}
	return decimal.NewFromString(qty)
}

// applyDelta writes the new quantity and the ledger entry. The stock row
// must already be locked with lockStock.
func (r *Repo) applyDelta(ctx context.Context, itemID uuid.UUID, have, delta decimal.Decimal, typ string, reason *string, reverses *uuid.UUID) (*inventoryapitest.Txn, error) {
	next := have.Add(delta)
	if next.IsNegative() {
		return nil, inventoryapitest.InsufficientStock(have, delta.Neg())
	}

	if err := r.exec(ctx, psql.Update("stocks").
		Set("quantity", next.String()).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"item_id": itemID})); err != nil {
		return nil, postgres.MapError(err, "stock", itemID)
	}

	t := &inventoryapitest.Txn{
		ID:         uuid.New(),
		ItemID:     itemID,
		Delta:      delta,
		Type:       typ,
		Reason:     reason,
		ReversesID: reverses,
	}
	sql, args, err := psql.Insert("stock_transactions").
		Columns("id", "item_id", "delta", "txn_type", "reason", "reverses_id").
		Values(t.ID, itemID, delta.String(), typ, reason, reverses).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert transaction: %w", err)
	}
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&t.CreatedAt); err != nil {
		return nil, postgres.MapError(err, "transaction", t.ID)
	}
	return t, nil
}

func scanTxn(row pgx.Row) (inventoryapitest.Txn, error) {
	var (
		t     inventoryapitest.Txn
		delta string
	)
	if err := row.Scan(&t.ID, &t.ItemID, &delta, &t.Type, &t.Reason, &t.ReversesID, &t.CreatedAt); err != nil {
		return t, err
	}
	var err error
	t.Delta, err = decimal.NewFromString(delta)
	return t, err
}

// ---------------------------------------------------------------------------
// Stocktakes
// ---------------------------------------------------------------------------

const diffFilter = `l.counted_quantity IS NOT NULL AND l.counted_quantity <> l.expected_quantity`

// OpenStocktake starts a session with one line per stock row.
func (r *Repo) OpenStocktake(ctx context.Context, title string) (uuid.UUID, error) {
	id := uuid.New()
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := r.exec(ctx, psql.Insert("stocktakes").Columns("id", "title").Values(id, title)); err != nil {
			return postgres.MapError(err, "stocktake", id)
		}
		_, err := r.q(ctx).Exec(ctx, `
			INSERT INTO stocktake_lines (stocktake_id, item_id, expected_quantity, shelf_location, shelf_location_note)
			SELECT $1::uuid, s.item_id, s.quantity, s.shelf_location, s.shelf_location_note
			FROM stocks s
			JOIN items i ON i.id = s.item_id
			ORDER BY i.seq`, id)
		return postgres.MapError(err, "stocktake lines", id)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ListStocktakes returns every session with its line counts, newest first.
func (r *Repo) ListStocktakes(ctx context.Context) ([]inventoryapitest.Session, error) {
	rows, err := r.query(ctx, sessionSelect().OrderBy("st.seq DESC"))
	if err != nil {
		return nil, postgres.MapError(err, "stocktakes", "list")
	}
	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventoryapitest.Session, error) {
		return scanSession(row)
	})
	if err != nil {
		return nil, postgres.MapError(err, "stocktakes", "list")
	}
	return sessions, nil
}

// GetStocktake returns a session and its lines sorted by item name.
func (r *Repo) GetStocktake(ctx context.Context, id uuid.UUID) (*inventoryapitest.Session, []inventoryapitest.Line, error) {
	sql, args, err := sessionSelect().Where(squirrel.Eq{"st.id": id}).ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build select stocktake: %w", err)
	}
	sess, err := scanSession(r.q(ctx).QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, inventoryapitest.ErrStocktakeNotFound
	}
	if err != nil {
		return nil, nil, postgres.MapError(err, "stocktake", id)
	}

	rows, err := r.query(ctx, psql.Select(
		"l.id", "i.id", "i.sku", "i.name", "i.unit",
		"l.expected_quantity::text", "l.counted_quantity::text",
		"l.shelf_location", "l.shelf_location_note", "l.note",
	).
		From("stocktake_lines l").
		Join("items i ON i.id = l.item_id").
		Where(squirrel.Eq{"l.stocktake_id": id}).
		OrderBy(nameOrder, "l.id"))
	if err != nil {
		return nil, nil, postgres.MapError(err, "stocktake lines", id)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventoryapitest.Line, error) {
		var (
			l        inventoryapitest.Line
			expected string
			counted  *string
		)
		if err := row.Scan(&l.ID, &l.Item.ID, &l.Item.SKU, &l.Item.Name, &l.Item.Unit,
			&expected, &counted, &l.ShelfLocation, &l.ShelfLocationNote, &l.Note); err != nil {
			return l, err
		}
		var err error
		if l.Expected, err = decimal.NewFromString(expected); err != nil {
			return l, err
		}
		if counted != nil {
			c, err := decimal.NewFromString(*counted)
			if err != nil {
				return l, err
			}
			l.Counted = &c
		}
		return l, nil
	})
	if err != nil {
		return nil, nil, postgres.MapError(err, "stocktake lines", id)
	}
	return &sess, lines, nil
}

// PatchLine changes the flagged fields of a line in an open session.
func (r *Repo) PatchLine(ctx context.Context, lineID int64, p inventoryapitest.LinePatch) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		var completed *time.Time
		err := r.q(ctx).QueryRow(ctx, `
			SELECT st.completed_at
			FROM stocktake_lines l
			JOIN stocktakes st ON st.id = l.stocktake_id
			WHERE l.id = $1
			FOR UPDATE OF l`, lineID,
		).Scan(&completed)
		if errors.Is(err, pgx.ErrNoRows) {
			return inventoryapitest.ErrLineNotFound
		}
		if err != nil {
			return postgres.MapError(err, "stocktake line", lineID)
		}
		if completed != nil {
			return inventoryapitest.ErrStocktakeClosed
		}
		if !p.SetCount && !p.SetNote {
			return nil
		}

		ub := psql.Update("stocktake_lines").Where(squirrel.Eq{"id": lineID})
		if p.SetCount {
			var count *string
			if p.Count != nil {
				s := p.Count.String()
				count = &s
			}
			ub = ub.Set("counted_quantity", count)
		}
		if p.SetNote {
			ub = ub.Set("note", p.Note)
		}
		return postgres.MapError(r.exec(ctx, ub), "stocktake line", lineID)
	})
}

// ConfirmStocktake moves every counted item to its count with a STOCKTAKE
// transaction and closes the session.
func (r *Repo) ConfirmStocktake(ctx context.Context, id uuid.UUID) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		var (
			title     string
			completed *time.Time
		)
		err := r.q(ctx).QueryRow(ctx,
			`SELECT title, completed_at FROM stocktakes WHERE id = $1 FOR UPDATE`, id,
		).Scan(&title, &completed)
		if errors.Is(err, pgx.ErrNoRows) {
			return inventoryapitest.ErrStocktakeNotFound
		}
		if err != nil {
			return postgres.MapError(err, "stocktake", id)
		}
		if completed != nil {
			return inventoryapitest.ErrStocktakeClosed
		}

		type counted struct {
			itemID uuid.UUID
			count  decimal.Decimal
		}
		rows, err := r.q(ctx).Query(ctx, `
			SELECT item_id, counted_quantity::text
			FROM stocktake_lines
			WHERE stocktake_id = $1 AND counted_quantity IS NOT NULL
			ORDER BY id`, id)
		if err != nil {
			return postgres.MapError(err, "stocktake lines", id)
		}
		lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (counted, error) {
			var (
				c   counted
				raw string
			)
			if err := row.Scan(&c.itemID, &raw); err != nil {
				return c, err
			}
			var err error
			c.count, err = decimal.NewFromString(raw)
			return c, err
		})
		if err != nil {
			return postgres.MapError(err, "stocktake lines", id)
		}

		reason := inventoryapitest.StocktakeReason(title)
		for _, l := range lines {
			have, err := r.lockStock(ctx, l.itemID)
			if errors.Is(err, inventoryapitest.ErrItemNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			delta := l.count.Sub(have)
			if delta.IsZero() {
				continue
			}
			if _, err := r.applyDelta(ctx, l.itemID, have, delta, "STOCKTAKE", &reason, nil); err != nil {
				return err
			}
		}

		return postgres.MapError(r.exec(ctx, psql.Update("stocktakes").
			Set("completed_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"id": id})), "stocktake", id)
	})
}

func sessionSelect() squirrel.SelectBuilder {
	return psql.Select(
		"st.id", "st.title", "st.started_at", "st.completed_at", "st.created_at",
		"count(i.id)",
		"count(i.id) FILTER (WHERE "+diffFilter+")",
	).
		From("stocktakes st").
		LeftJoin("stocktake_lines l ON l.stocktake_id = st.id").
		LeftJoin("items i ON i.id = l.item_id").
		GroupBy("st.id")
}

func scanSession(row pgx.Row) (inventoryapitest.Session, error) {
	var s inventoryapitest.Session
	err := row.Scan(&s.ID, &s.Title, &s.StartedAt, &s.CompletedAt, &s.CreatedAt, &s.LinesCount, &s.DiffCount)
	return s, err
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Summary counts what the database holds.
func (r *Repo) Summary(ctx context.Context) (inventoryapitest.Counts, error) {
	var c inventoryapitest.Counts
	err := r.q(ctx).QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM items),
			(SELECT count(*) FROM stock_transactions),
			(SELECT count(*) FROM stocktakes),
			(SELECT count(*) FROM stocktakes WHERE completed_at IS NULL)`,
	).Scan(&c.Items, &c.Transactions, &c.Stocktakes, &c.Open)
	if err != nil {
		return c, postgres.MapError(err, "summary", "counts")
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type sqlizer interface {
	ToSql() (string, []any, error)
}

func (r *Repo) exec(ctx context.Context, b sqlizer) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	_, err = r.q(ctx).Exec(ctx, sql, args...)
	return err
}

func (r *Repo) query(ctx context.Context, sb squirrel.SelectBuilder) (pgx.Rows, error) {
	sql, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.q(ctx).Query(ctx, sql, args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
