package domain

import "time"

type EntryType string

const (
	EntryTypeIncome     EntryType = "INCOME"
	EntryTypeExpense    EntryType = "EXPENSE"
	EntryTypeAdjustment EntryType = "ADJUSTMENT"
)

// Ledger entry categories used by the billing core. Category carries the
// direction for ADJUSTMENT entries: refunds subtract, everything else adds.
const (
	CategoryRent         = "RENT"
	CategoryLateFee      = "LATE_FEE"
	CategoryProration    = "PRORATED_RENT"
	CategoryOverpayment  = "OVERPAYMENT"
	CategoryRefund       = "REFUND"
	CategoryCancellation = "CANCELLATION"
)

// LedgerEntry is an immutable audit record of a money-moving event. Amount is
// always positive; the sign is conveyed by type (and, for adjustments, by
// category). Entries are never updated or deleted after creation.
type LedgerEntry struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	FacilityID  *int64     `json:"facility_id,omitempty"`
	CustomerID  *int64     `json:"customer_id,omitempty"`
	RentalID    *int64     `json:"rental_id,omitempty"`
	Type        EntryType  `json:"type"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	AmountCents int64      `json:"amount_cents"`
	EntryDate   time.Time  `json:"entry_date"`
	PaymentID   *string    `json:"payment_id,omitempty"`
	Seq         int64      `json:"seq"` // monotonic per owner, assigned on append
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate enforces the append preconditions: a positive amount and at least
// one scope reference.
func (e *LedgerEntry) Validate() error {
	if e.AmountCents <= 0 {
		return NewValidationError("amount_cents", "must be positive")
	}
	if e.FacilityID == nil && e.CustomerID == nil && e.RentalID == nil {
		return NewValidationError("scope", "at least one of facility_id, customer_id, rental_id must be set")
	}
	switch e.Type {
	case EntryTypeIncome, EntryTypeExpense, EntryTypeAdjustment:
	default:
		return NewValidationError("type", "unknown entry type")
	}
	return nil
}

// SignedCents is the entry's contribution to a reconciled balance:
// income adds, expense subtracts, adjustments add except refunds.
func (e *LedgerEntry) SignedCents() int64 {
	switch e.Type {
	case EntryTypeExpense:
		return -e.AmountCents
	case EntryTypeAdjustment:
		if e.Category == CategoryRefund {
			return -e.AmountCents
		}
		return e.AmountCents
	default:
		return e.AmountCents
	}
}

// LedgerScope selects the denormalized reference reconcile sums over.
type LedgerScope struct {
	FacilityID *int64
	CustomerID *int64
	RentalID   *int64
}
