package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested row does not exist for this owner.
	ErrNotFound = errors.New("not found")
	// ErrConcurrencyConflict indicates two writers raced on the same rental.
	// Callers retry a bounded number of times before surfacing it.
	ErrConcurrencyConflict = errors.New("concurrent update on rental")
	// ErrCollaboratorTimeout indicates an external collaborator (signature
	// confirmation, payment capture) did not answer within the deadline.
	// No entity state is mutated when this is returned.
	ErrCollaboratorTimeout = errors.New("external collaborator timed out")
)

// ValidationError rejects malformed input before any mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidStateTransitionError reports a rejected lifecycle transition with
// enough context to diagnose without re-deriving state from logs.
type InvalidStateTransitionError struct {
	Entity  string
	ID      int64
	Current string
	Target  string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition for id %d: %s -> %s", e.Entity, e.ID, e.Current, e.Target)
}

// DuplicatePaymentError signals that a completed payment id was applied twice.
// The second application is an idempotent no-op for the caller.
type DuplicatePaymentError struct {
	PaymentID string
	InvoiceID int64
}

func (e *DuplicatePaymentError) Error() string {
	return fmt.Sprintf("payment %s already applied to invoice %d", e.PaymentID, e.InvoiceID)
}
