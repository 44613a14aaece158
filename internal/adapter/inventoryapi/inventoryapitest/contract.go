package inventoryapitest

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBackendContract checks the behaviour every Backend must share. newBackend
// must return an empty backend for each call.
func RunBackendContract(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("items newest first", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		first := mustCreate(t, b, ItemSpec{SKU: " BLT-1 ", Name: "Bolts", Quantity: decimal.NewFromInt(1)})
		second := mustCreate(t, b, ItemSpec{Name: "Anchors", Unit: "box", Quantity: decimal.NewFromInt(2)})

		items, err := b.ListItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, second, items[0].ID)
		assert.Equal(t, "box", items[0].Unit)
		assert.Nil(t, items[0].SKU)
		assert.Equal(t, first, items[1].ID)
		assert.Equal(t, DefaultUnit, items[1].Unit)
		require.NotNil(t, items[1].SKU)
		assert.Equal(t, "BLT-1", *items[1].SKU)
	})

	t.Run("search", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		for _, name := range []string{"Washer M8", "hex WASHER", "Nut", "Washer 100% steel"} {
			mustCreate(t, b, ItemSpec{Name: name, Quantity: decimal.Zero})
		}

		got, err := b.SearchItems(ctx, "washer", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"Washer 100% steel", "Washer M8", "hex WASHER"}, names(got))

		got, err = b.SearchItems(ctx, "washer", 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = b.SearchItems(ctx, "100%", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"Washer 100% steel"}, names(got))

		got, err = b.SearchItems(ctx, "bolt", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("stocks and shelf", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		mustCreate(t, b, ItemSpec{Name: "Nuts", Quantity: decimal.RequireFromString("2.5"), ShelfLocation: "A2", ShelfNote: "top"})
		mustCreate(t, b, ItemSpec{Name: "Bolts", Quantity: decimal.NewFromInt(7)})

		rows, err := b.ListStocks(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Bolts", rows[0].Item.Name)
		assert.True(t, rows[0].Quantity.Equal(decimal.NewFromInt(7)))
		assert.Nil(t, rows[0].ShelfLocation)
		assert.Equal(t, "Nuts", rows[1].Item.Name)
		assert.True(t, rows[1].Quantity.Equal(decimal.RequireFromString("2.5")))
		require.NotNil(t, rows[1].ShelfLocation)
		assert.Equal(t, "A2", *rows[1].ShelfLocation)

		loc := "C7"
		require.NoError(t, b.UpdateShelf(ctx, rows[1].ID, ShelfPatch{SetLocation: true, Location: &loc, SetNote: true}))

		rows, err = b.ListStocks(ctx)
		require.NoError(t, err)
		require.NotNil(t, rows[1].ShelfLocation)
		assert.Equal(t, "C7", *rows[1].ShelfLocation)
		assert.Nil(t, rows[1].ShelfLocationNote)

		assertStatus(t, b.UpdateShelf(ctx, 9999, ShelfPatch{}), http.StatusNotFound)
	})

	t.Run("post delta", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		id := mustCreate(t, b, ItemSpec{Name: "Tape", Quantity: decimal.NewFromInt(3)})

		reason := "delivery"
		txn, err := b.PostDelta(ctx, id, decimal.NewFromInt(5), "RECEIPT", &reason)
		require.NoError(t, err)
		assert.Equal(t, id, txn.ItemID)
		assert.Equal(t, "RECEIPT", txn.Type)
		assert.True(t, txn.Delta.Equal(decimal.NewFromInt(5)))
		assert.False(t, txn.CreatedAt.IsZero())
		assert.Nil(t, txn.ReversesID)
		assertQuantity(t, b, id, "8")

		_, err = b.PostDelta(ctx, id, decimal.NewFromInt(-9), "ISSUE", nil)
		assertStatus(t, err, http.StatusConflict)
		assert.Contains(t, err.Error(), "Insufficient stock")
		assertQuantity(t, b, id, "8")

		_, err = b.PostDelta(ctx, id, decimal.NewFromInt(-8), "ISSUE", nil)
		require.NoError(t, err)
		assertQuantity(t, b, id, "0")

		_, err = b.PostDelta(ctx, uuid.New(), decimal.NewFromInt(1), "RECEIPT", nil)
		assertStatus(t, err, http.StatusNotFound)
	})

	t.Run("ledger order and paging", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		bolts := mustCreate(t, b, ItemSpec{Name: "Bolts", Quantity: decimal.Zero})
		nuts := mustCreate(t, b, ItemSpec{Name: "Nuts", Quantity: decimal.Zero})

		var ids []uuid.UUID
		for i, item := range []uuid.UUID{bolts, nuts, bolts, bolts} {
			txn, err := b.PostDelta(ctx, item, decimal.NewFromInt(int64(i+1)), "RECEIPT", nil)
			require.NoError(t, err)
			ids = append(ids, txn.ID)
		}

		hist, err := b.ItemTransactions(ctx, bolts, 2)
		require.NoError(t, err)
		require.Len(t, hist, 2)
		assert.Equal(t, ids[3], hist[0].ID)
		assert.Equal(t, ids[2], hist[1].ID)

		_, err = b.ItemTransactions(ctx, uuid.New(), 10)
		assertStatus(t, err, http.StatusNotFound)

		page, total, err := b.ListTransactions(ctx, 3, 0)
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, page, 3)
		assert.Equal(t, ids[3], page[0].ID)
		require.NotNil(t, page[0].Item)
		assert.Equal(t, "Bolts", page[0].Item.Name)

		page, total, err = b.ListTransactions(ctx, 3, 3)
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, page, 1)
		assert.Equal(t, ids[0], page[0].ID)

		page, _, err = b.ListTransactions(ctx, 3, 10)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("reverse", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		id := mustCreate(t, b, ItemSpec{Name: "Gloves", Quantity: decimal.NewFromInt(10)})

		issue, err := b.PostDelta(ctx, id, decimal.NewFromInt(-4), "ISSUE", nil)
		require.NoError(t, err)

		rev, err := b.Reverse(ctx, issue.ID)
		require.NoError(t, err)
		assert.Equal(t, "REVERSAL", rev.Type)
		assert.True(t, rev.Delta.Equal(decimal.NewFromInt(4)))
		require.NotNil(t, rev.ReversesID)
		assert.Equal(t, issue.ID, *rev.ReversesID)
		require.NotNil(t, rev.Reason)
		assert.Equal(t, ReversalReason(issue.ID), *rev.Reason)
		assertQuantity(t, b, id, "10")

		_, err = b.Reverse(ctx, issue.ID)
		assert.ErrorIs(t, err, ErrAlreadyReversed)

		_, err = b.Reverse(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrTxnNotFound)

		receipt, err := b.PostDelta(ctx, id, decimal.NewFromInt(5), "RECEIPT", nil)
		require.NoError(t, err)
		_, err = b.PostDelta(ctx, id, decimal.NewFromInt(-13), "ISSUE", nil)
		require.NoError(t, err)
		_, err = b.Reverse(ctx, receipt.ID)
		assertStatus(t, err, http.StatusConflict)
		assertQuantity(t, b, id, "2")
	})

	t.Run("stocktake lifecycle", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		nuts := mustCreate(t, b, ItemSpec{Name: "Nuts", Quantity: decimal.NewFromInt(6), ShelfLocation: "A2"})
		bolts := mustCreate(t, b, ItemSpec{Name: "Bolts", Quantity: decimal.NewFromInt(10)})
		tape := mustCreate(t, b, ItemSpec{Name: "Tape", Quantity: decimal.NewFromInt(2)})

		stID, err := b.OpenStocktake(ctx, "Weekly")
		require.NoError(t, err)

		sess, lines, err := b.GetStocktake(ctx, stID)
		require.NoError(t, err)
		assert.Equal(t, "Weekly", sess.Title)
		assert.Nil(t, sess.CompletedAt)
		assert.Equal(t, 3, sess.LinesCount)
		assert.Zero(t, sess.DiffCount)
		require.Len(t, lines, 3)
		assert.Equal(t, []string{"Bolts", "Nuts", "Tape"}, []string{lines[0].Item.Name, lines[1].Item.Name, lines[2].Item.Name})
		assert.True(t, lines[1].Expected.Equal(decimal.NewFromInt(6)))
		require.NotNil(t, lines[1].ShelfLocation)
		assert.Equal(t, "A2", *lines[1].ShelfLocation)
		assert.Nil(t, lines[0].Counted)

		eight, six, note := decimal.NewFromInt(8), decimal.NewFromInt(6), "behind the door"
		require.NoError(t, b.PatchLine(ctx, lines[0].ID, LinePatch{SetCount: true, Count: &eight}))
		require.NoError(t, b.PatchLine(ctx, lines[1].ID, LinePatch{SetCount: true, Count: &six, SetNote: true, Note: &note}))

		sessions, err := b.ListStocktakes(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, 3, sessions[0].LinesCount)
		assert.Equal(t, 1, sessions[0].DiffCount)

		_, lines, err = b.GetStocktake(ctx, stID)
		require.NoError(t, err)
		assert.True(t, lines[0].IsDiff())
		assert.False(t, lines[1].IsDiff())
		require.NotNil(t, lines[1].Note)
		assert.Equal(t, note, *lines[1].Note)

		// Stock moves after the count; confirm sets it to the count.
		_, err = b.PostDelta(ctx, bolts, decimal.NewFromInt(-1), "ISSUE", nil)
		require.NoError(t, err)

		require.NoError(t, b.ConfirmStocktake(ctx, stID))
		assertQuantity(t, b, bolts, "8")
		assertQuantity(t, b, nuts, "6")
		assertQuantity(t, b, tape, "2")

		hist, err := b.ItemTransactions(ctx, bolts, 1)
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, "STOCKTAKE", hist[0].Type)
		assert.True(t, hist[0].Delta.Equal(decimal.NewFromInt(-1)))
		require.NotNil(t, hist[0].Reason)
		assert.Equal(t, StocktakeReason("Weekly"), *hist[0].Reason)

		nutsHist, err := b.ItemTransactions(ctx, nuts, 10)
		require.NoError(t, err)
		assert.Empty(t, nutsHist)

		sess, _, err = b.GetStocktake(ctx, stID)
		require.NoError(t, err)
		assert.NotNil(t, sess.CompletedAt)

		assert.ErrorIs(t, b.ConfirmStocktake(ctx, stID), ErrStocktakeClosed)
		assert.ErrorIs(t, b.PatchLine(ctx, lines[2].ID, LinePatch{SetCount: true, Count: &six}), ErrStocktakeClosed)
	})

	t.Run("clear count", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		mustCreate(t, b, ItemSpec{Name: "Oil", Quantity: decimal.NewFromInt(1)})
		stID, err := b.OpenStocktake(ctx, "Spot check")
		require.NoError(t, err)
		_, lines, err := b.GetStocktake(ctx, stID)
		require.NoError(t, err)
		require.Len(t, lines, 1)

		three := decimal.NewFromInt(3)
		require.NoError(t, b.PatchLine(ctx, lines[0].ID, LinePatch{SetCount: true, Count: &three}))
		require.NoError(t, b.PatchLine(ctx, lines[0].ID, LinePatch{SetCount: true}))

		_, lines, err = b.GetStocktake(ctx, stID)
		require.NoError(t, err)
		assert.Nil(t, lines[0].Counted)
	})

	t.Run("stocktake not found", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		_, _, err := b.GetStocktake(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrStocktakeNotFound)
		assert.ErrorIs(t, b.ConfirmStocktake(ctx, uuid.New()), ErrStocktakeNotFound)
		assert.ErrorIs(t, b.PatchLine(ctx, 9999, LinePatch{}), ErrLineNotFound)
	})

	t.Run("summary", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		c, err := b.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, Counts{}, c)

		require.NoError(t, Seed(ctx, b))
		first, err := b.ListItems(ctx)
		require.NoError(t, err)
		_, err = b.PostDelta(ctx, first[0].ID, decimal.NewFromInt(1), "RECEIPT", nil)
		require.NoError(t, err)

		c, err = b.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, Counts{Items: len(DemoItems), Transactions: 1, Stocktakes: 1, Open: 1}, c)
	})
}

func mustCreate(t *testing.T, b Backend, spec ItemSpec) uuid.UUID {
	t.Helper()
	id, err := b.CreateItem(context.Background(), spec)
	require.NoError(t, err)
	return id
}

func assertQuantity(t *testing.T, b Backend, itemID uuid.UUID, want string) {
	t.Helper()
	rows, err := b.ListStocks(context.Background())
	require.NoError(t, err)
	for _, r := range rows {
		if r.Item.ID == itemID {
			assert.True(t, r.Quantity.Equal(decimal.RequireFromString(want)), "quantity = %s, want %s", r.Quantity, want)
			return
		}
	}
	t.Errorf("no stock row for item %s", itemID)
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	var se *StatusError
	if assert.True(t, errors.As(err, &se), "want *StatusError, got %v", err) {
		assert.Equal(t, status, se.Status)
	}
}

func names(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}
