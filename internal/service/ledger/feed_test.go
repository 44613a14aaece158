package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/stockroom/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pagedLister serves total entries in pages, like the collaborator.
func pagedLister(total int) *transactionListerMock {
	return &transactionListerMock{
		ListTransactionsFunc: func(_ context.Context, limit, offset int) (*domain.TransactionPage, error) {
			n := max(0, min(limit, total-offset))
			items := make([]domain.Transaction, n)
			for i := range items {
				items[i] = domain.Transaction{ID: uuid.New()}
			}
			return &domain.TransactionPage{
				Items: items,
				Meta:  domain.PageMeta{Total: total, Limit: limit, Offset: offset},
			}, nil
		},
	}
}

func TestFeed_WalkForwardAndBack(t *testing.T) {
	t.Parallel()

	lister := pagedLister(125)
	f := NewFeed(testLogger(), lister, 50)
	ctx := context.Background()

	v, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Page{Number: 1, TotalPages: 3, HasNext: true}, v.Page)

	_, err = f.Prev(ctx)
	assert.ErrorIs(t, err, ErrNoPrevPage)

	v, err = f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Page.Number)

	v, err = f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, Page{Number: 3, TotalPages: 3, HasPrev: true}, v.Page)
	assert.Len(t, v.Items, 25)

	_, err = f.Next(ctx)
	assert.ErrorIs(t, err, ErrNoNextPage)

	v, err = f.Prev(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Page.Number)

	v, err = f.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Page.Number)

	offsets := []int{}
	for _, c := range lister.ListTransactionsCalls() {
		assert.Equal(t, 50, c.Limit)
		offsets = append(offsets, c.Offset)
	}
	assert.Equal(t, []int{0, 50, 100, 50, 0}, offsets, "disabled moves must not reach the server")
}

func TestFeed_EmptyFeedDisablesBothDirections(t *testing.T) {
	t.Parallel()

	f := NewFeed(testLogger(), pagedLister(0), 50)
	ctx := context.Background()

	v, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Page{Number: 1, TotalPages: 1}, v.Page)

	_, err = f.Next(ctx)
	assert.ErrorIs(t, err, ErrNoNextPage)
	_, err = f.Prev(ctx)
	assert.ErrorIs(t, err, ErrNoPrevPage)
}

func TestFeed_NextBeforeLoad(t *testing.T) {
	t.Parallel()

	lister := pagedLister(10)
	f := NewFeed(testLogger(), lister, 5)

	_, err := f.Next(context.Background())
	assert.ErrorIs(t, err, ErrNoNextPage)
	assert.Nil(t, f.Current())
	assert.Empty(t, lister.ListTransactionsCalls())
}

func TestFeed_FailedLoadKeepsPosition(t *testing.T) {
	t.Parallel()

	good := pagedLister(125)
	fail := false
	lister := &transactionListerMock{
		ListTransactionsFunc: func(ctx context.Context, limit, offset int) (*domain.TransactionPage, error) {
			if fail {
				return nil, errors.New("boom")
			}
			return good.ListTransactionsFunc(ctx, limit, offset)
		},
	}
	f := NewFeed(testLogger(), lister, 50)
	ctx := context.Background()

	_, err := f.Load(ctx)
	require.NoError(t, err)
	_, err = f.Next(ctx)
	require.NoError(t, err)

	fail = true
	_, err = f.Next(ctx)
	require.Error(t, err)

	cur := f.Current()
	require.NotNil(t, cur)
	assert.Equal(t, 2, cur.Page.Number)

	fail = false
	v, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, v.Meta.Offset)
}

func TestFeed_UsesServerClampedLimit(t *testing.T) {
	t.Parallel()

	lister := &transactionListerMock{
		ListTransactionsFunc: func(_ context.Context, limit, offset int) (*domain.TransactionPage, error) {
			return &domain.TransactionPage{Meta: domain.PageMeta{Total: 250, Limit: 100, Offset: offset}}, nil
		},
	}
	f := NewFeed(testLogger(), lister, 500)

	v, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v.Page.TotalPages)
}

func TestNewFeed_DefaultPageSize(t *testing.T) {
	t.Parallel()

	lister := pagedLister(0)
	f := NewFeed(testLogger(), lister, 0)
	_, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, lister.ListTransactionsCalls()[0].Limit)
}
