package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/stockroom/internal/domain"
	"github.com/heartmarshall/stockroom/internal/service/txnform"
)

// Submit validates the form for the current selection and posts it. Only
// one submission may be in flight. On success the stock list is refreshed,
// the history is reloaded if the same item is still selected, and the form
// is cleared. On failure local state is left as it was apart from the
// reported error.
func (c *Controller) Submit(ctx context.Context, in txnform.FormInput) (*domain.Transaction, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}

	in.ItemID = nil
	if c.selected != nil {
		id := c.selected.ItemID
		in.ItemID = &id
	}
	sub, err := txnform.Validate(in)
	if err != nil {
		c.setErr(err)
		c.mu.Unlock()
		return nil, err
	}

	c.submitting = true
	gen := c.generation
	unit := c.selected.Unit
	c.mu.Unlock()

	txn, err := c.client.Submit(ctx, *sub)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.setErr(err)
		c.mu.Unlock()
		c.log.WarnContext(ctx, "transaction rejected",
			slog.String("type", sub.Type.String()),
			slog.String("item_id", sub.ItemID.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("selection.Submit: %w", err)
	}
	if gen == c.generation {
		c.form = emptyDraft()
	}
	c.mu.Unlock()

	c.log.InfoContext(ctx, "transaction submitted",
		slog.String("type", sub.Type.String()),
		slog.String("item_id", sub.ItemID.String()),
		slog.String("amount", sub.Amount.String()),
	)

	if err := c.afterMutation(ctx, gen); err != nil {
		return txn, err
	}

	c.mu.Lock()
	if gen == c.generation {
		c.setNotice(describe(txn, unit))
	}
	c.mu.Unlock()
	return txn, nil
}

// UpdateShelf sets the shelf location and note of the selected stock line
// and refreshes the list.
func (c *Controller) UpdateShelf(ctx context.Context, location, note string) error {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return ErrNothingSelected
	}
	stockID := c.selected.ID
	gen := c.generation
	c.mu.Unlock()

	if err := c.client.UpdateStockShelf(ctx, stockID, &location, &note); err != nil {
		c.mu.Lock()
		c.setErr(err)
		c.mu.Unlock()
		return fmt.Errorf("selection.UpdateShelf: %w", err)
	}

	if err := c.Refresh(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	if gen == c.generation {
		c.setNotice("Shelf location saved")
	}
	c.mu.Unlock()
	return nil
}

// Reverse undoes a transaction from the selected item's history, then
// refreshes the list and history.
func (c *Controller) Reverse(ctx context.Context, txnID uuid.UUID) (*domain.Transaction, error) {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return nil, ErrNothingSelected
	}
	gen := c.generation
	unit := c.selected.Unit
	c.mu.Unlock()

	txn, err := c.client.ReverseTransaction(ctx, txnID)
	if err != nil {
		c.mu.Lock()
		c.setErr(err)
		c.mu.Unlock()
		return nil, fmt.Errorf("selection.Reverse: %w", err)
	}

	if err := c.afterMutation(ctx, gen); err != nil {
		return txn, err
	}
	c.mu.Lock()
	if gen == c.generation {
		c.setNotice(describe(txn, unit))
	}
	c.mu.Unlock()
	return txn, nil
}

// afterMutation reloads the list, and the history when the selection that
// started the mutation is still current.
func (c *Controller) afterMutation(ctx context.Context, gen uint64) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	same := gen == c.generation && c.selected != nil
	c.mu.Unlock()
	if !same {
		return nil
	}

	if _, err := c.LoadHistory(ctx); err != nil && !errors.Is(err, ErrStaleSelection) {
		return err
	}
	return nil
}

func describe(txn *domain.Transaction, unit string) string {
	if txn == nil {
		return "Saved"
	}
	delta := txn.Delta.String()
	if txn.Delta.IsPositive() {
		delta = "+" + delta
	}
	if unit != "" {
		delta += " " + unit
	}
	return fmt.Sprintf("%s %s recorded", txn.Type, delta)
}
