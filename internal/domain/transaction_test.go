package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestTxnType_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  TxnType
		want bool
	}{
		{TxnTypeReceipt, true},
		{TxnTypeIssue, true},
		{TxnTypeAdjust, true},
		{TxnTypeStocktake, true},
		{TxnTypeReversal, true},
		{TxnType("receipt"), false},
		{TxnType(""), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			t.Parallel()
			if got := tt.typ.IsValid(); got != tt.want {
				t.Errorf("TxnType(%q).IsValid() = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestTransaction_IsReversal(t *testing.T) {
	t.Parallel()

	orig := uuid.New()
	txn := Transaction{ID: uuid.New(), Type: TxnTypeReversal, Delta: decimal.NewFromInt(-5), ReversesID: &orig, CreatedAt: time.Now()}
	if !txn.IsReversal() {
		t.Error("expected reversal")
	}

	plain := Transaction{ID: uuid.New(), Type: TxnTypeReceipt, Delta: decimal.NewFromInt(5)}
	if plain.IsReversal() {
		t.Error("receipt should not be a reversal")
	}
}

func TestFindStockLine(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	lines := []StockLine{
		{ItemID: a, Name: "Bolts", Quantity: decimal.NewFromInt(3)},
		{ItemID: b, Name: "Nuts", Quantity: decimal.NewFromInt(9)},
	}

	got, ok := FindStockLine(lines, b)
	if !ok || got.Name != "Nuts" {
		t.Fatalf("FindStockLine(b) = %+v, %v", got, ok)
	}
	if _, ok := FindStockLine(lines, uuid.New()); ok {
		t.Error("unknown item should not be found")
	}
}
