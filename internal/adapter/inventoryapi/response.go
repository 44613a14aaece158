package inventoryapi

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heartmarshall/stockroom/internal/domain"
)

// apiErrorBody is the error envelope returned with every non-2xx status.
type apiErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// apiItem is an entry of GET /items.
type apiItem struct {
	ID           uuid.UUID `json:"id"`
	SKU          *string   `json:"sku"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Category     *string   `json:"category"`
	Usage        *string   `json:"usage"`
	Manufacturer *string   `json:"manufacturer"`
}

// apiSuggestion is an entry of GET /suggestions.
type apiSuggestion struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	SKU  *string   `json:"sku"`
}

// apiStock is an entry of GET /stocks.
type apiStock struct {
	ID                int64           `json:"id"`
	ItemID            uuid.UUID       `json:"item_id"`
	SKU               *string         `json:"sku"`
	Name              string          `json:"name"`
	Unit              string          `json:"unit"`
	Quantity          decimal.Decimal `json:"quantity"`
	ShelfLocation     *string         `json:"shelf_location"`
	ShelfLocationNote *string         `json:"shelf_location_note"`
	UpdatedAt         *flexTime       `json:"updated_at"`
}

// apiTransaction is a ledger entry. Mutation responses and both listings
// share the shape; item_* fields are only present in the global feed.
type apiTransaction struct {
	TransactionID         *uuid.UUID      `json:"transaction_id"`
	ID                    *uuid.UUID      `json:"id"`
	ItemID                uuid.UUID       `json:"item_id"`
	ItemName              *string         `json:"item_name"`
	ItemSKU               *string         `json:"item_sku"`
	ItemUnit              *string         `json:"item_unit"`
	DeltaQuantity         decimal.Decimal `json:"delta_quantity"`
	TxnType               string          `json:"txn_type"`
	Reason                *string         `json:"reason"`
	ReversesTransactionID *uuid.UUID      `json:"reverses_transaction_id"`
	CreatedAt             flexTime        `json:"created_at"`
}

// apiFeed is the GET /transactions envelope.
type apiFeed struct {
	Items []apiTransaction `json:"items"`
	Meta  apiFeedMeta      `json:"meta"`
}

type apiFeedMeta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// apiStocktake is a session summary; the detail endpoint adds lines.
type apiStocktake struct {
	ID          uuid.UUID          `json:"id"`
	Title       string             `json:"title"`
	StartedAt   *flexTime          `json:"started_at"`
	CompletedAt *flexTime          `json:"completed_at"`
	CreatedAt   *flexTime          `json:"created_at"`
	LinesCount  int                `json:"lines_count"`
	DiffCount   int                `json:"diff_count"`
	Lines       []apiStocktakeLine `json:"lines"`
}

type apiStocktakeLine struct {
	ID                int64            `json:"id"`
	ItemID            uuid.UUID        `json:"item_id"`
	SKU               *string          `json:"sku"`
	Name              string           `json:"name"`
	Unit              string           `json:"unit"`
	ExpectedQuantity  decimal.Decimal  `json:"expected_quantity"`
	CountedQuantity   *decimal.Decimal `json:"counted_quantity"`
	ShelfLocation     *string          `json:"shelf_location"`
	ShelfLocationNote *string          `json:"shelf_location_note"`
	Note              *string          `json:"note"`
	IsDiff            bool             `json:"is_diff"`
}

// flexTime accepts RFC 3339 timestamps as well as ISO-8601 timestamps without
// a zone offset, which are read as UTC.
type flexTime struct {
	time.Time
}

var flexLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	for _, layout := range flexLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("inventoryapi: unrecognized timestamp %q", s)
}

func (t *flexTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func mapItem(a apiItem) domain.Item {
	return domain.Item{
		ID:           a.ID,
		SKU:          a.SKU,
		Name:         a.Name,
		Unit:         a.Unit,
		Category:     a.Category,
		Usage:        a.Usage,
		Manufacturer: a.Manufacturer,
	}
}

func mapStock(a apiStock) domain.StockLine {
	return domain.StockLine{
		ID:                a.ID,
		ItemID:            a.ItemID,
		Name:              a.Name,
		SKU:               a.SKU,
		Quantity:          a.Quantity,
		Unit:              a.Unit,
		ShelfLocation:     a.ShelfLocation,
		ShelfLocationNote: a.ShelfLocationNote,
		UpdatedAt:         a.UpdatedAt.ptr(),
	}
}

func mapTransaction(a apiTransaction) domain.Transaction {
	t := domain.Transaction{
		ItemID:     a.ItemID,
		Type:       normalizeTxnType(a.TxnType),
		Delta:      a.DeltaQuantity,
		Reason:     a.Reason,
		ReversesID: a.ReversesTransactionID,
		CreatedAt:  a.CreatedAt.Time,
		ItemName:   a.ItemName,
		ItemSKU:    a.ItemSKU,
		ItemUnit:   a.ItemUnit,
	}
	switch {
	case a.TransactionID != nil:
		t.ID = *a.TransactionID
	case a.ID != nil:
		t.ID = *a.ID
	}
	return t
}

func mapTransactions(in []apiTransaction) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(in))
	for _, a := range in {
		out = append(out, mapTransaction(a))
	}
	return out
}

// normalizeTxnType upper-cases the server's type and folds the long
// adjustment spelling onto ADJUST.
func normalizeTxnType(raw string) domain.TxnType {
	t := domain.TxnType(strings.ToUpper(strings.TrimSpace(raw)))
	if t == "ADJUSTMENT" {
		return domain.TxnTypeAdjust
	}
	return t
}

func mapSession(a apiStocktake) domain.StocktakeSession {
	return domain.StocktakeSession{
		ID:          a.ID,
		Title:       a.Title,
		LinesCount:  a.LinesCount,
		DiffCount:   a.DiffCount,
		StartedAt:   a.StartedAt.ptr(),
		CompletedAt: a.CompletedAt.ptr(),
		CreatedAt:   a.CreatedAt.ptr(),
	}
}

func mapStocktake(a apiStocktake) *domain.Stocktake {
	st := &domain.Stocktake{
		StocktakeSession: mapSession(a),
		Lines:            make([]domain.StocktakeLine, 0, len(a.Lines)),
	}
	for _, l := range a.Lines {
		st.Lines = append(st.Lines, domain.StocktakeLine{
			ID:                l.ID,
			StocktakeID:       a.ID,
			ItemID:            l.ItemID,
			Name:              l.Name,
			SKU:               l.SKU,
			Unit:              l.Unit,
			ShelfLocation:     l.ShelfLocation,
			ShelfLocationNote: l.ShelfLocationNote,
			Expected:          l.ExpectedQuantity,
			Counted:           l.CountedQuantity,
			Note:              l.Note,
			IsDiff:            l.IsDiff,
		})
	}
	return st
}
