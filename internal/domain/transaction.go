package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxnType is the ledger classification of a transaction as reported by the server.
type TxnType string

const (
	TxnTypeReceipt   TxnType = "RECEIPT"
	TxnTypeIssue     TxnType = "ISSUE"
	TxnTypeAdjust    TxnType = "ADJUST"
	TxnTypeStocktake TxnType = "STOCKTAKE"
	TxnTypeReversal  TxnType = "REVERSAL"
)

func (t TxnType) String() string { return string(t) }

func (t TxnType) IsValid() bool {
	switch t {
	case TxnTypeReceipt, TxnTypeIssue, TxnTypeAdjust, TxnTypeStocktake, TxnTypeReversal:
		return true
	}
	return false
}

// Transaction is an append-only ledger entry. Delta is signed: receipts are
// positive, issues negative, adjustments either.
type Transaction struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	Type       TxnType
	Delta      decimal.Decimal
	Reason     *string
	ReversesID *uuid.UUID
	CreatedAt  time.Time

	// Populated only by the global feed.
	ItemName *string
	ItemSKU  *string
	ItemUnit *string
}

// IsReversal reports whether the transaction undoes an earlier one.
func (t *Transaction) IsReversal() bool {
	return t.ReversesID != nil
}

// PageMeta is the offset/limit paging metadata of the global transaction feed.
type PageMeta struct {
	Total  int
	Limit  int
	Offset int
}

// TransactionPage is one page of the global transaction feed, newest first.
type TransactionPage struct {
	Items []Transaction
	Meta  PageMeta
}
