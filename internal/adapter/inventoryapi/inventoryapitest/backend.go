package inventoryapitest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Backend is the storage behind API. Store keeps everything in memory; the
// postgres adapter persists it.
type Backend interface {
	// ListItems returns every item, newest first.
	ListItems(ctx context.Context) ([]Item, error)
	// SearchItems returns up to limit items whose name contains q, ignoring
	// case, sorted by name.
	SearchItems(ctx context.Context, q string, limit int) ([]Item, error)
	// ListStocks returns every stock row sorted by item name, then stock id.
	ListStocks(ctx context.Context) ([]StockRow, error)
	UpdateShelf(ctx context.Context, stockID int64, p ShelfPatch) error

	// ItemTransactions returns an item's ledger, newest first.
	ItemTransactions(ctx context.Context, itemID uuid.UUID, limit int) ([]Txn, error)
	// ListTransactions returns one page of the global ledger, newest first,
	// with Item set, and the total number of entries.
	ListTransactions(ctx context.Context, limit, offset int) ([]Txn, int, error)
	// PostDelta changes an item's stock by delta and records it. The result
	// must not go below zero.
	PostDelta(ctx context.Context, itemID uuid.UUID, delta decimal.Decimal, typ string, reason *string) (*Txn, error)
	// Reverse records the opposite of a transaction. A transaction can be
	// reversed once.
	Reverse(ctx context.Context, txnID uuid.UUID) (*Txn, error)

	// ListStocktakes returns every session, newest first.
	ListStocktakes(ctx context.Context) ([]Session, error)
	// GetStocktake returns a session and its lines sorted by item name.
	GetStocktake(ctx context.Context, id uuid.UUID) (*Session, []Line, error)
	PatchLine(ctx context.Context, lineID int64, p LinePatch) error
	// ConfirmStocktake applies every counted line to stock as a STOCKTAKE
	// transaction and closes the session.
	ConfirmStocktake(ctx context.Context, id uuid.UUID) error

	// CreateItem adds an item with its stock row.
	CreateItem(ctx context.Context, spec ItemSpec) (uuid.UUID, error)
	// OpenStocktake starts a session with one line per stock row, expecting
	// the current quantity.
	OpenStocktake(ctx context.Context, title string) (uuid.UUID, error)
	Summary(ctx context.Context) (Counts, error)
}

// ItemSpec describes an item to create.
type ItemSpec struct {
	SKU           string
	Name          string
	Unit          string
	Quantity      decimal.Decimal
	ShelfLocation string
	ShelfNote     string
}

// Item is a catalog entry.
type Item struct {
	ID   uuid.UUID
	SKU  *string
	Name string
	Unit string
}

// StockRow is an item's on-hand stock.
type StockRow struct {
	ID                int64
	Item              Item
	Quantity          decimal.Decimal
	ShelfLocation     *string
	ShelfLocationNote *string
	UpdatedAt         time.Time
}

// Txn is a ledger entry. Item is set only by ListTransactions.
type Txn struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	Delta      decimal.Decimal
	Type       string
	Reason     *string
	ReversesID *uuid.UUID
	CreatedAt  time.Time
	Item       *Item
}

// Session is a stocktake header with its line and difference counts.
type Session struct {
	ID          uuid.UUID
	Title       string
	StartedAt   time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	LinesCount  int
	DiffCount   int
}

// Line is one item of a stocktake.
type Line struct {
	ID                int64
	Item              Item
	Expected          decimal.Decimal
	Counted           *decimal.Decimal
	ShelfLocation     *string
	ShelfLocationNote *string
	Note              *string
}

// IsDiff reports whether the line is counted and differs from expected.
func (l Line) IsDiff() bool {
	return l.Counted != nil && !l.Counted.Equal(l.Expected)
}

// ShelfPatch changes the fields whose Set flag is true. A nil value clears.
type ShelfPatch struct {
	SetLocation bool
	Location    *string
	SetNote     bool
	Note        *string
}

// LinePatch changes the fields whose Set flag is true. A nil value clears.
type LinePatch struct {
	SetCount bool
	Count    *decimal.Decimal
	SetNote  bool
	Note     *string
}

// Counts is a summary of what a backend holds.
type Counts struct {
	Items        int `json:"items"`
	Transactions int `json:"transactions"`
	Stocktakes   int `json:"stocktakes"`
	Open         int `json:"open_stocktakes"`
}

// StatusError is a failure the API reports with an HTTP status and an
// {"error": msg} body.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string { return e.Message }

var (
	ErrItemNotFound      = &StatusError{http.StatusNotFound, "Item not found"}
	ErrStockNotFound     = &StatusError{http.StatusNotFound, "Stock not found"}
	ErrTxnNotFound       = &StatusError{http.StatusNotFound, "Transaction not found"}
	ErrAlreadyReversed   = &StatusError{http.StatusConflict, "Transaction already reversed"}
	ErrStocktakeNotFound = &StatusError{http.StatusNotFound, "Stocktake not found"}
	ErrLineNotFound      = &StatusError{http.StatusNotFound, "Line not found"}
	ErrStocktakeClosed   = &StatusError{http.StatusConflict, "Stocktake already completed"}
)

// InsufficientStock reports an issue or adjustment that would take stock
// below zero.
func InsufficientStock(have, need decimal.Decimal) *StatusError {
	return &StatusError{http.StatusConflict, fmt.Sprintf("Insufficient stock: have %s, need %s", have, need)}
}

// ReversalReason is the reason recorded on a reversal.
func ReversalReason(id uuid.UUID) string {
	return fmt.Sprintf("Reversal of transaction %s", id)
}

// StocktakeReason is the reason recorded on a confirmed stocktake adjustment.
func StocktakeReason(title string) string {
	return "Stocktake: " + title
}

// DefaultUnit is used when an ItemSpec leaves Unit empty.
const DefaultUnit = "pcs"
