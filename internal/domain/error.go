package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAlreadyPaid      = errors.New("order already paid")
	ErrConflict         = errors.New("order already processed by another path")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrOrderExpired     = errors.New("order too old to verify")
	ErrGatewayFailure   = errors.New("payment gateway failure")
	ErrRateLimited      = errors.New("too many requests")
	ErrPaymentRequired  = errors.New("payment not confirmed")
	ErrOperationFailed  = errors.New("operation failed")
	ErrReadDatabaseRow  = errors.New("failed to read database row")
)

// ValidationError carries the offending field so the API can surface a
// field-specific message. It matches ErrInvalidArgument under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
