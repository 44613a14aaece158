// Package txnform validates the receipt / issue / adjustment form before
// anything is sent to the server.
package txnform

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heartmarshall/stockroom/internal/domain"
)

// Kind is the form-level transaction type.
type Kind string

const (
	Receipt    Kind = "receipt"
	Issue      Kind = "issue"
	Adjustment Kind = "adjustment"
)

// Kinds lists the form types in display order.
var Kinds = []Kind{Receipt, Issue, Adjustment}

func (k Kind) String() string { return string(k) }

// TxnType is the ledger type the server records for this form type.
func (k Kind) TxnType() domain.TxnType {
	switch k {
	case Receipt:
		return domain.TxnTypeReceipt
	case Issue:
		return domain.TxnTypeIssue
	case Adjustment:
		return domain.TxnTypeAdjust
	}
	return ""
}

// MaxFractionDigits matches the form's quantity step of 0.001.
const MaxFractionDigits = 3

// Rule violations. Every error returned by Validate wraps one of these and
// domain.ErrValidation.
var (
	ErrNoSelection            = errors.New("select an item first")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrInvalidQuantity        = errors.New("quantity must be a number with at most 3 decimals")
	ErrNonPositiveQuantity    = errors.New("quantity must be greater than zero")
	ErrZeroAdjustment         = errors.New("adjustment must not be zero")
)

// FormInput is the raw form state.
type FormInput struct {
	Type        Kind
	RawQuantity string
	Reason      string
	// ItemID is the selected item, nil when nothing is selected.
	ItemID *uuid.UUID
}

// Submission is a validated, normalized form ready to send.
type Submission struct {
	Type   Kind
	ItemID uuid.UUID
	// Amount is the quantity for receipts and issues (always > 0) or the
	// signed delta for adjustments (never 0).
	Amount decimal.Decimal
	Reason *string
}

// Validate checks the form in a fixed order and returns the first rule that
// fails: quantity syntax, selection, sign for the type, then the type itself.
// It never touches the network.
func Validate(in FormInput) (*Submission, error) {
	amount, err := ParseQuantity(in.RawQuantity)
	if err != nil {
		return nil, domain.NewRuleError("quantity", ErrInvalidQuantity)
	}
	if in.ItemID == nil || *in.ItemID == uuid.Nil {
		return nil, domain.NewRuleError("item", ErrNoSelection)
	}

	switch in.Type {
	case Receipt, Issue:
		if !amount.IsPositive() {
			return nil, domain.NewRuleError("quantity", ErrNonPositiveQuantity)
		}
	case Adjustment:
		if amount.IsZero() {
			return nil, domain.NewRuleError("quantity", ErrZeroAdjustment)
		}
	default:
		return nil, domain.NewRuleError("type", ErrUnknownTransactionType)
	}

	return &Submission{
		Type:   in.Type,
		ItemID: *in.ItemID,
		Amount: amount,
		Reason: NormalizeReason(in.Reason),
	}, nil
}

// ParseQuantity parses a decimal quantity with at most MaxFractionDigits
// fractional digits. Exponent notation is rejected.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Decimal{}, fmt.Errorf("txnform: invalid quantity %q", raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("txnform: invalid quantity %q: %w", raw, err)
	}
	if !d.Equal(d.Truncate(MaxFractionDigits)) {
		return decimal.Decimal{}, fmt.Errorf("txnform: quantity %q has more than %d decimals", raw, MaxFractionDigits)
	}
	return d, nil
}

// NormalizeReason trims the reason; an empty result is absent.
func NormalizeReason(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}

// Endpoint is the collaborator path for the submission.
func (s Submission) Endpoint() string {
	var action string
	switch s.Type {
	case Receipt:
		action = "receipts"
	case Issue:
		action = "issues"
	case Adjustment:
		action = "adjustments"
	}
	return fmt.Sprintf("/items/%s/%s", s.ItemID, action)
}

// Payload is the JSON request body. Amounts are rendered from their decimal
// string so no binary floating point is involved.
func (s Submission) Payload() map[string]any {
	key := "quantity"
	if s.Type == Adjustment {
		key = "delta"
	}
	p := map[string]any{key: json.Number(s.Amount.String())}
	if s.Reason != nil {
		p["reason"] = *s.Reason
	}
	return p
}
