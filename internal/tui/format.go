package tui

import (
	"strings"
	"time"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"

	"github.com/heartmarshall/stockroom/internal/domain"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatQty(d decimal.Decimal, unit string) string {
	if unit == "" {
		return d.String()
	}
	return d.String() + " " + unit
}

// formatDelta always carries a sign so receipts and issues read apart.
func formatDelta(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func shelfLabel(loc, note *string) string {
	l := deref(loc)
	if l == "" {
		l = "-"
	}
	if n := deref(note); n != "" {
		l += " (" + n + ")"
	}
	return l
}

func txnLabel(t domain.Transaction) string {
	label := t.Type.String()
	if t.IsReversal() {
		label += " ↺"
	}
	return label
}

// fit pads or truncates s to exactly w display cells.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if xansi.StringWidth(s) > w {
		return xansi.Truncate(s, w, "…")
	}
	return s + strings.Repeat(" ", w-xansi.StringWidth(s))
}
