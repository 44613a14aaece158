package stocktake_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi"
	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi/inventoryapitest"
	"github.com/heartmarshall/stockroom/internal/domain"
	"github.com/heartmarshall/stockroom/internal/service/stocktake"
)

func TestView_CountAndConfirmEndToEnd(t *testing.T) {
	t.Parallel()

	srv := inventoryapitest.NewServer()
	t.Cleanup(srv.Close)
	bolts, _ := srv.Store.AddItem(inventoryapitest.ItemSpec{Name: "Bolts", Quantity: decimal.NewFromInt(10), ShelfLocation: "B1"})
	nuts, _ := srv.Store.AddItem(inventoryapitest.ItemSpec{Name: "Nuts", Quantity: decimal.NewFromInt(6), ShelfLocation: "A2"})
	tape, _ := srv.Store.AddItem(inventoryapitest.ItemSpec{Name: "Tape", Quantity: decimal.NewFromInt(2)})
	id := srv.Store.StartStocktake("Spring count")

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := inventoryapi.NewClientWithURL(srv.BaseURL(), log)
	v, err := stocktake.NewView(log, client, id, stocktake.Options{})
	require.NoError(t, err)
	ctx := context.Background()

	sheet, err := v.Load(ctx)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Nuts", sheet.Rows[0].Line.Name)
	assert.Equal(t, "Bolts", sheet.Rows[1].Line.Name)
	assert.Equal(t, "Tape", sheet.Rows[2].Line.Name)
	assert.Equal(t, "10", sheet.Rows[1].Input, "prefilled with expected")

	boltsLine, _ := srv.Store.LineIDFor(id, bolts)
	nutsLine, _ := srv.Store.LineIDFor(id, nuts)

	sheet, err = v.EditCount(ctx, boltsLine, "8")
	require.NoError(t, err)
	assert.Equal(t, 1, sheet.Session.DiffCount)

	sheet, err = v.ApplyCounts(ctx, map[int64]string{nutsLine: "6.5"})
	require.NoError(t, err)
	assert.Equal(t, 2, sheet.Session.DiffCount)

	require.NoError(t, v.EditNote(ctx, nutsLine, "found an open box"))

	_, err = v.Confirm(ctx, 1)
	require.ErrorIs(t, err, stocktake.ErrAcknowledgementMismatch)

	sheet, err = v.Confirm(ctx, 2)
	require.NoError(t, err)
	assert.True(t, sheet.Session.IsCompleted())

	q, _ := srv.Store.Quantity(bolts)
	assert.True(t, q.Equal(decimal.NewFromInt(8)), "bolts = %s", q)
	q, _ = srv.Store.Quantity(nuts)
	assert.True(t, q.Equal(decimal.RequireFromString("6.5")), "nuts = %s", q)
	q, _ = srv.Store.Quantity(tape)
	assert.True(t, q.Equal(decimal.NewFromInt(2)), "uncounted tape untouched")

	_, err = v.EditCount(ctx, boltsLine, "9")
	assert.ErrorIs(t, err, domain.ErrCompleted)

	history, err := client.ListItemTransactions(ctx, bolts, 5)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, domain.TxnTypeStocktake, history[0].Type)
}
