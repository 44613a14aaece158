package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is reference data describing a stocked article. The client never mutates it.
type Item struct {
	ID           uuid.UUID
	SKU          *string
	Name         string
	Unit         string
	Category     *string
	Usage        *string
	Manufacturer *string
}

// StockLine is the current on-hand quantity of one item.
// Quantity is server-authoritative and is refreshed after every mutation.
type StockLine struct {
	ID                int64
	ItemID            uuid.UUID
	Name              string
	SKU               *string
	Quantity          decimal.Decimal
	Unit              string
	ShelfLocation     *string
	ShelfLocationNote *string
	UpdatedAt         *time.Time
}

// ItemSuggestion is a lightweight name match returned by the suggestion endpoint.
type ItemSuggestion struct {
	ID   uuid.UUID
	Name string
	SKU  *string
}

// FindStockLine returns the line for itemID, or false if the list does not contain it.
func FindStockLine(lines []StockLine, itemID uuid.UUID) (StockLine, bool) {
	for _, l := range lines {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return StockLine{}, false
}
