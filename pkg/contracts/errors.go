package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientBalance is matched by every *InsufficientBalanceError.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrRelay is matched by every *RelayError.
	ErrRelay = errors.New("relay failed")
	// ErrChainCorrupted is returned when a stored sequence fails hash or linkage verification.
	ErrChainCorrupted = errors.New("ledger chain corrupted")
)

// ValidationError reports malformed or out-of-range caller input. It is never written to the ledger.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Message)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError references a nonexistent ledger entity.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientBalanceError is returned when a transfer exceeds the sender's available credits.
type InsufficientBalanceError struct {
	HolderID  string
	Available float64
	Requested float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient credits for %s: available %.6f, requested %.6f", e.HolderID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// RelayError wraps a failure of the optional external ledger relay.
type RelayError struct {
	Relay string
	Err   error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay %s: %v", e.Relay, e.Err)
}

func (e *RelayError) Unwrap() error { return e.Err }

func (e *RelayError) Is(target error) bool { return target == ErrRelay }
