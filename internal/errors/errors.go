// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrRateLimited       = errors.New("rate limited")
	ErrQuoteUnavailable  = errors.New("quote unavailable")
	ErrAPIError          = errors.New("upstream API error")
	ErrTimeout           = errors.New("operation timed out")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrMissingCredential = errors.New("missing required credential")
	ErrDataNotFound      = errors.New("data not found")
	ErrDatabaseError     = errors.New("database error")
	ErrStorageDisabled   = errors.New("storage disabled")
	ErrNoChannels        = errors.New("no notification channels enabled")
)

// FetchError represents a failure fetching a quote from the upstream source.
// It is always recoverable: the cycle downgrades the symbol's contribution
// and continues.
type FetchError struct {
	Symbol   string
	Attempts int
	Reason   string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch error [%s] after %d attempt(s): %s: %v", e.Symbol, e.Attempts, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch error [%s] after %d attempt(s): %s", e.Symbol, e.Attempts, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(symbol string, attempts int, reason string, err error) *FetchError {
	return &FetchError{
		Symbol:   symbol,
		Attempts: attempts,
		Reason:   reason,
		Err:      err,
	}
}

// StoreError represents a persistence failure. The save is dropped and
// evaluation continues with stale or absent history.
type StoreError struct {
	Operation string
	Symbol    string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("store error [%s] %s: %v", e.Operation, e.Symbol, e.Err)
	}
	return fmt.Sprintf("store error [%s]: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(operation, symbol string, err error) *StoreError {
	return &StoreError{
		Operation: operation,
		Symbol:    symbol,
		Err:       err,
	}
}

// NotifyError represents a per-channel dispatch failure. Other channels are
// still attempted.
type NotifyError struct {
	Channel string
	Err     error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify error [%s]: %v", e.Channel, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// NewNotifyError creates a new NotifyError.
func NewNotifyError(channel string, err error) *NotifyError {
	return &NotifyError{
		Channel: channel,
		Err:     err,
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
