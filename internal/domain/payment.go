package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment is a receipt from the external capture service applied to one
// invoice. Immutable once completed, except for the refund transition.
type Payment struct {
	ID              string        `json:"id"` // capture-service id, the idempotency key
	OwnerID         int64         `json:"owner_id"`
	InvoiceID       int64         `json:"invoice_id"`
	CustomerID      int64         `json:"customer_id"`
	AmountCents     int64         `json:"amount_cents"`
	PaymentMethodID *string       `json:"payment_method_id,omitempty"`
	TransactionID   string        `json:"transaction_id"`
	Status          PaymentStatus `json:"status"`
	ProcessedAt     time.Time     `json:"processed_at"`
	CreatedAt       time.Time     `json:"created_at"`
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusRefunded},
	PaymentStatusFailed:    {},
	PaymentStatusRefunded:  {},
}

// Validate checks payment invariants before it touches any invoice.
func (p *Payment) Validate() error {
	if p.ID == "" {
		return NewValidationError("id", "must be set")
	}
	if p.InvoiceID <= 0 {
		return NewValidationError("invoice_id", "must be set")
	}
	if p.AmountCents <= 0 {
		return NewValidationError("amount_cents", "must be positive")
	}
	return nil
}

func (p *Payment) CanTransition(target PaymentStatus) bool {
	for _, next := range paymentTransitions[p.Status] {
		if next == target {
			return true
		}
	}
	return false
}

func (p *Payment) Transition(target PaymentStatus) error {
	if !p.CanTransition(target) {
		return &InvalidStateTransitionError{
			Entity:  "payment",
			Current: string(p.Status),
			Target:  string(target),
		}
	}
	p.Status = target
	return nil
}
