package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrCompleted  = errors.New("stocktake already completed")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// RuleError reports a broken validation rule on a single field. It matches
// both the rule sentinel and ErrValidation under errors.Is.
type RuleError struct {
	Field string
	Rule  error
}

func (e *RuleError) Error() string { return e.Rule.Error() }

func (e *RuleError) Unwrap() []error { return []error{e.Rule, ErrValidation} }

// NewRuleError creates a RuleError for field.
func NewRuleError(field string, rule error) *RuleError {
	return &RuleError{Field: field, Rule: rule}
}
