package inventoryapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/heartmarshall/stockroom/internal/domain"
)

// APIError is a non-2xx response from the collaborator.
type APIError struct {
	Status  int
	Message string
	// Fields holds optional per-field hints sent alongside the error message.
	Fields map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("inventoryapi: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("inventoryapi: HTTP %d", e.Status)
}

// Unwrap maps well-known statuses onto domain sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrValidation
	}
	return nil
}

// DisplayMessage is the server's error text verbatim, or a generic fallback.
func (e *APIError) DisplayMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed (HTTP %d)", e.Status)
}

// FieldHints returns the field hints sorted by field name.
func (e *APIError) FieldHints() []domain.FieldError {
	if len(e.Fields) == 0 {
		return nil
	}
	hints := make([]domain.FieldError, 0, len(e.Fields))
	for f, m := range e.Fields {
		hints = append(hints, domain.FieldError{Field: f, Message: m})
	}
	sort.Slice(hints, func(i, j int) bool { return hints[i].Field < hints[j].Field })
	return hints
}

// UserMessage renders any error returned by this package or the services
// built on it as a short message suitable for a status line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.DisplayMessage()
	}

	var re *domain.RuleError
	if errors.As(err, &re) {
		return re.Error()
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) && len(ve.Errors) > 0 {
		return ve.Errors[0].Message
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrCompleted):
		return err.Error()
	}
	return "request failed"
}
