// Package selection holds the stock list, the currently selected line and
// its transaction form.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/stockroom/internal/domain"
	"github.com/heartmarshall/stockroom/internal/service/txnform"
)

var (
	// ErrStaleSelection is returned when a result arrives for a selection
	// that has since changed. The result was discarded; callers may ignore it.
	ErrStaleSelection  = errors.New("selection changed while loading")
	ErrSubmitInFlight  = errors.New("a transaction is already being submitted")
	ErrNothingSelected = errors.New("no item selected")
	ErrNotInList       = fmt.Errorf("item is not in the stock list: %w", domain.ErrNotFound)
)

// DefaultHistoryLimit is the number of transactions shown for a selection.
const DefaultHistoryLimit = 20

type stockClient interface {
	ListStocks(ctx context.Context) ([]domain.StockLine, error)
	ListItemTransactions(ctx context.Context, itemID uuid.UUID, limit int) ([]domain.Transaction, error)
	Submit(ctx context.Context, s txnform.Submission) (*domain.Transaction, error)
	UpdateStockShelf(ctx context.Context, stockID int64, location, note *string) error
	ReverseTransaction(ctx context.Context, txnID uuid.UUID) (*domain.Transaction, error)
}

// Draft is the unsent state of the transaction form.
type Draft struct {
	Type     txnform.Kind
	Quantity string
	Reason   string
}

func emptyDraft() Draft { return Draft{Type: txnform.Receipt} }

// State is a point-in-time copy of the controller.
type State struct {
	Lines []domain.StockLine
	// Selected is nil when idle.
	Selected     *domain.StockLine
	PanelVisible bool
	History      []domain.Transaction
	HistoryReady bool
	Form         Draft
	Submitting   bool
	// Notice is a success message; Err is the last failure. At most one is set.
	Notice string
	Err    error
	// Generation changes whenever the selection itself changes.
	Generation uint64
}

// Controller is the selection state machine: Idle, or Selected(line).
// It is safe for concurrent use; network calls are made without holding
// the lock and their results are discarded when they no longer apply.
type Controller struct {
	client       stockClient
	log          *slog.Logger
	historyLimit int

	mu         sync.Mutex
	lines      []domain.StockLine
	selected   *domain.StockLine
	history    []domain.Transaction
	historyOK  bool
	form       Draft
	submitting bool
	notice     string
	err        error
	generation uint64
	listSeq    uint64
}

// NewController creates an idle controller.
func NewController(logger *slog.Logger, client stockClient, historyLimit int) *Controller {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Controller{
		client:       client,
		log:          logger.With("service", "selection"),
		historyLimit: historyLimit,
		form:         emptyDraft(),
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Lines:        slices.Clone(c.lines),
		PanelVisible: c.selected != nil,
		History:      slices.Clone(c.history),
		HistoryReady: c.historyOK,
		Form:         c.form,
		Submitting:   c.submitting,
		Notice:       c.notice,
		Err:          c.err,
		Generation:   c.generation,
	}
	if c.selected != nil {
		sel := *c.selected
		st.Selected = &sel
	}
	return st
}

// SetDraft stores the form as currently typed.
func (c *Controller) SetDraft(d Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = d
}

// Refresh reloads the stock list and rebinds the selection by item id. If
// the selected item is gone, the controller returns to idle.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.listSeq++
	seq := c.listSeq
	c.mu.Unlock()

	lines, err := c.client.ListStocks(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.listSeq {
		// A newer refresh was started; let it decide.
		return nil
	}
	if err != nil {
		c.setErr(err)
		return fmt.Errorf("selection.Refresh: %w", err)
	}

	c.lines = lines
	if c.selected == nil {
		return nil
	}
	if line, ok := domain.FindStockLine(lines, c.selected.ItemID); ok {
		c.selected = &line
		return nil
	}

	c.log.InfoContext(ctx, "selected item no longer listed",
		slog.String("item_id", c.selected.ItemID.String()))
	c.resetSelection()
	return nil
}

// Select makes itemID the current selection. The item must be in the last
// loaded list. It returns the new selection generation.
func (c *Controller) Select(itemID uuid.UUID) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := domain.FindStockLine(c.lines, itemID)
	if !ok {
		return c.generation, ErrNotInList
	}

	c.resetSelection()
	c.selected = &line
	return c.generation, nil
}

// Clear returns to idle. Calling it while idle is a no-op.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == nil {
		return
	}
	c.resetSelection()
}

// LoadHistory fetches the recent transactions of the selected item. If the
// selection changes while the request is in flight the result is dropped
// and ErrStaleSelection is returned.
func (c *Controller) LoadHistory(ctx context.Context) ([]domain.Transaction, error) {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return nil, ErrNothingSelected
	}
	gen := c.generation
	itemID := c.selected.ItemID
	c.mu.Unlock()

	txns, err := c.client.ListItemTransactions(ctx, itemID, c.historyLimit)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return nil, ErrStaleSelection
	}
	if err != nil {
		c.setErr(err)
		return nil, fmt.Errorf("selection.LoadHistory: %w", err)
	}
	c.history = txns
	c.historyOK = true
	return slices.Clone(txns), nil
}

// resetSelection drops the selection, form, history and status, and starts
// a new generation. Callers must hold mu.
func (c *Controller) resetSelection() {
	c.selected = nil
	c.history = nil
	c.historyOK = false
	c.form = emptyDraft()
	c.notice = ""
	c.err = nil
	c.generation++
}

// setErr records a failure as the current status. Callers must hold mu.
func (c *Controller) setErr(err error) {
	c.err = err
	c.notice = ""
}

// setNotice records a success message. Callers must hold mu.
func (c *Controller) setNotice(msg string) {
	c.notice = msg
	c.err = nil
}
