package inventoryapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heartmarshall/stockroom/internal/domain"
	"github.com/heartmarshall/stockroom/internal/service/txnform"
)

// DefaultHistoryLimit is the number of entries shown for one item.
const DefaultHistoryLimit = 20

// PostReceipt records a receipt of qty (> 0) for the item.
func (c *Client) PostReceipt(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal, reason *string) (*domain.Transaction, error) {
	return c.Submit(ctx, txnform.Submission{Type: txnform.Receipt, ItemID: itemID, Amount: qty, Reason: reason})
}

// PostIssue records an issue of qty (> 0) from the item.
func (c *Client) PostIssue(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal, reason *string) (*domain.Transaction, error) {
	return c.Submit(ctx, txnform.Submission{Type: txnform.Issue, ItemID: itemID, Amount: qty, Reason: reason})
}

// PostAdjustment records a signed, non-zero delta for the item.
func (c *Client) PostAdjustment(ctx context.Context, itemID uuid.UUID, delta decimal.Decimal, reason *string) (*domain.Transaction, error) {
	return c.Submit(ctx, txnform.Submission{Type: txnform.Adjustment, ItemID: itemID, Amount: delta, Reason: reason})
}

// Submit sends a form submission to its endpoint. Amounts that the server
// would reject are refused locally and no request is made.
func (c *Client) Submit(ctx context.Context, s txnform.Submission) (*domain.Transaction, error) {
	switch s.Type {
	case txnform.Receipt, txnform.Issue:
		if !s.Amount.IsPositive() {
			return nil, domain.NewRuleError("quantity", txnform.ErrNonPositiveQuantity)
		}
	case txnform.Adjustment:
		if s.Amount.IsZero() {
			return nil, domain.NewRuleError("delta", txnform.ErrZeroAdjustment)
		}
	default:
		return nil, domain.NewRuleError("type", txnform.ErrUnknownTransactionType)
	}
	if s.ItemID == uuid.Nil {
		return nil, domain.NewRuleError("item", txnform.ErrNoSelection)
	}

	var raw apiTransaction
	if err := c.send(ctx, http.MethodPost, s.Endpoint(), s.Payload(), &raw); err != nil {
		return nil, err
	}
	txn := mapTransaction(raw)

	c.log.InfoContext(ctx, "transaction recorded",
		slog.String("type", txn.Type.String()),
		slog.String("item_id", s.ItemID.String()),
		slog.String("delta", txn.Delta.String()),
	)
	return &txn, nil
}

// ListItemTransactions returns the most recent transactions of one item,
// newest first. A non-positive limit uses DefaultHistoryLimit.
func (c *Client) ListItemTransactions(ctx context.Context, itemID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var raw []apiTransaction
	path := fmt.Sprintf("/items/%s/transactions", itemID)
	if err := c.get(ctx, path, url.Values{"limit": {strconv.Itoa(limit)}}, &raw); err != nil {
		return nil, err
	}
	return mapTransactions(raw), nil
}

// ListTransactions returns one page of the global feed, newest first.
func (c *Client) ListTransactions(ctx context.Context, limit, offset int) (*domain.TransactionPage, error) {
	q := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	var raw apiFeed
	if err := c.get(ctx, "/transactions", q, &raw); err != nil {
		return nil, err
	}
	return &domain.TransactionPage{
		Items: mapTransactions(raw.Items),
		Meta: domain.PageMeta{
			Total:  raw.Meta.Total,
			Limit:  raw.Meta.Limit,
			Offset: raw.Meta.Offset,
		},
	}, nil
}

// ReverseTransaction appends a REVERSAL entry undoing txnID. The server
// refuses a second reversal of the same entry with 409.
func (c *Client) ReverseTransaction(ctx context.Context, txnID uuid.UUID) (*domain.Transaction, error) {
	var raw apiTransaction
	path := fmt.Sprintf("/transactions/%s/reverse", txnID)
	if err := c.send(ctx, http.MethodPost, path, nil, &raw); err != nil {
		return nil, err
	}
	txn := mapTransaction(raw)

	c.log.InfoContext(ctx, "transaction reversed",
		slog.String("reverses", txnID.String()),
		slog.String("id", txn.ID.String()),
	)
	return &txn, nil
}
