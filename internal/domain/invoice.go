package domain

import "time"

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Invoice bills one rental for one period. Exactly one row exists per
// (rental_id, period_start); the generator treats re-generation as a no-op.
type Invoice struct {
	ID              int64         `json:"id"`
	OwnerID         int64         `json:"owner_id"`
	CustomerID      int64         `json:"customer_id"`
	RentalID        int64         `json:"rental_id"`
	InvoiceNumber   string        `json:"invoice_number"` // unique per owner
	PeriodStart     time.Time     `json:"period_start"`
	PeriodEnd       time.Time     `json:"period_end"`
	AmountDueCents  int64         `json:"amount_due_cents"`
	AmountPaidCents int64         `json:"amount_paid_cents"`
	DueDate         time.Time     `json:"due_date"`
	Status          InvoiceStatus `json:"status"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"` // set exactly once, on first full coverage
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:     {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:      {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue:   {InvoiceStatusPaid, InvoiceStatusCancelled},
	// A refund can pull a paid invoice back to SENT when no longer covered.
	InvoiceStatusPaid:      {InvoiceStatusSent},
	InvoiceStatusCancelled: {},
}

// NewInvoice validates the invoice invariants at creation time.
func NewInvoice(ownerID, customerID, rentalID int64, invoiceNumber string, periodStart, periodEnd, dueDate time.Time, amountDueCents int64) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, NewValidationError("invoice_number", "must be set")
	}
	if amountDueCents <= 0 {
		return nil, NewValidationError("amount_due_cents", "must be positive")
	}
	if periodEnd.Before(periodStart) {
		return nil, NewValidationError("period_end", "must not precede period_start")
	}
	return &Invoice{
		OwnerID:        ownerID,
		CustomerID:     customerID,
		RentalID:       rentalID,
		InvoiceNumber:  invoiceNumber,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		AmountDueCents: amountDueCents,
		DueDate:        dueDate,
		Status:         InvoiceStatusDraft,
	}, nil
}

func (i *Invoice) CanTransition(target InvoiceStatus) bool {
	for _, next := range invoiceTransitions[i.Status] {
		if next == target {
			return true
		}
	}
	return false
}

func (i *Invoice) Transition(target InvoiceStatus) error {
	if !i.CanTransition(target) {
		return &InvalidStateTransitionError{
			Entity:  "invoice",
			ID:      i.ID,
			Current: string(i.Status),
			Target:  string(target),
		}
	}
	i.Status = target
	return nil
}

// OutstandingCents is the unpaid remainder, never negative.
func (i *Invoice) OutstandingCents() int64 {
	if i.AmountPaidCents >= i.AmountDueCents {
		return 0
	}
	return i.AmountDueCents - i.AmountPaidCents
}

// Open reports whether the invoice still accepts payments.
func (i *Invoice) Open() bool {
	return i.Status == InvoiceStatusSent || i.Status == InvoiceStatusOverdue
}
