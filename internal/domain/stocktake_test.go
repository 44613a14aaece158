package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStocktakeSession_Status(t *testing.T) {
	t.Parallel()

	open := StocktakeSession{Title: "Q1"}
	if open.IsCompleted() || open.Status() != "Open" {
		t.Errorf("open session: completed=%v status=%q", open.IsCompleted(), open.Status())
	}

	now := time.Now()
	done := StocktakeSession{Title: "Q1", CompletedAt: &now}
	if !done.IsCompleted() || done.Status() != "Completed" {
		t.Errorf("done session: completed=%v status=%q", done.IsCompleted(), done.Status())
	}
}

func TestStocktake_Line(t *testing.T) {
	t.Parallel()

	counted := decimal.RequireFromString("4.5")
	st := Stocktake{Lines: []StocktakeLine{
		{ID: 1, Name: "Washers", Expected: decimal.NewFromInt(4)},
		{ID: 2, Name: "Screws", Expected: decimal.NewFromInt(4), Counted: &counted, IsDiff: true},
	}}

	l, ok := st.Line(2)
	if !ok {
		t.Fatal("line 2 not found")
	}
	if !l.IsCounted() || !l.IsDiff {
		t.Errorf("line 2: counted=%v diff=%v", l.IsCounted(), l.IsDiff)
	}
	if _, ok := st.Line(99); ok {
		t.Error("line 99 should not exist")
	}
}
