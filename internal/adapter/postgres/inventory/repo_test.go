//go:build integration

package inventory_test

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
	"github.com/heartmarshall/stockroom/internal/adapter/postgres/inventory"
	"github.com/heartmarshall/stockroom/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/stockroom/internal/domain"
)

func TestRepo_BackendContract(t *testing.T) {
	inventoryapitest.RunBackendContract(t, func(t *testing.T) inventoryapitest.Backend {
		return inventory.New(testhelper.SetupTestDB(t))
	})
}

func TestRepo_ServesClient(t *testing.T) {
	repo := inventory.New(testhelper.SetupTestDB(t))
	ctx := context.Background()
	require.NoError(t, inventoryapitest.Seed(ctx, repo))

	srv := inventoryapitest.NewServerFor(repo)
	defer srv.Close()
	client := inventoryapi.NewClientWithURL(srv.BaseURL(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	stocks, err := client.ListStocks(ctx)
	require.NoError(t, err)
	require.Len(t, stocks, len(inventoryapitest.DemoItems))

	var oil *domain.StockLine
	for i := range stocks {
		if stocks[i].Name == "Machine oil" {
			oil = &stocks[i]
		}
	}
	require.NotNil(t, oil)
	assert.True(t, oil.Quantity.Equal(decimal.RequireFromString("12.5")))

	txn, err := client.PostIssue(ctx, oil.ItemID, decimal.RequireFromString("0.75"), nil)
	require.NoError(t, err)
	assert.True(t, txn.Delta.Equal(decimal.RequireFromString("-0.75")))

	page, err := client.ListTransactions(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Meta.Total)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].ItemName)
	assert.Equal(t, "Machine oil", *page.Items[0].ItemName)
}
