package service

import (
	"context"
	"time"

	"selfstore-backend/internal/domain"
)

// CreateRentalInput carries the fields of a new draft rental.
type CreateRentalInput struct {
	FacilityID            int64
	CustomerID            int64
	UnitID                int64
	StartDate             time.Time
	EndDate               *time.Time
	MonthlyRateCents      int64
	SecurityDepositCents  int64
	LateFeeBps            int32
	AutoRenew             bool
	InsuranceRequired     bool
	InsuranceProvider     string
	InsurancePolicyNumber string
}

type RentalService interface {
	CreateRental(ctx context.Context, ownerID int64, input CreateRentalInput) (*domain.Rental, error)
	SubmitForSignature(ctx context.Context, ownerID, rentalID int64) (*domain.Rental, error)
	// ActivateRental confirms the signature with the external provider and,
	// on success, activates the rental and drafts the first period invoice.
	ActivateRental(ctx context.Context, ownerID, rentalID int64) (*domain.Rental, *domain.Invoice, error)
	// TerminateRental ends an active rental effective on the given date,
	// drafting and sending a prorated final invoice when the date falls
	// mid-period.
	TerminateRental(ctx context.Context, ownerID, rentalID int64, effective time.Time) (*domain.Rental, *domain.Invoice, error)
	GetRental(ctx context.Context, ownerID, rentalID int64) (*domain.Rental, error)
	ListRentals(ctx context.Context, ownerID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error)
}

type InvoiceService interface {
	// GenerateForPeriod creates the invoice for (rental, periodStart) or
	// returns the existing one; duplicate generation is a no-op.
	GenerateForPeriod(ctx context.Context, rental *domain.Rental, periodStart, periodEnd time.Time) (*domain.Invoice, error)
	// GenerateFinal creates the prorated invoice for a termination that
	// falls mid-period, charging only the days through usedThrough.
	GenerateFinal(ctx context.Context, rental *domain.Rental, periodStart, periodEnd, usedThrough time.Time) (*domain.Invoice, error)
	// Send moves a draft invoice to SENT and records the accrual income
	// ledger entry. This is the only place income is recognized.
	Send(ctx context.Context, invoice *domain.Invoice) error
	// Cancel voids an invoice. Cancelling after it was sent records an
	// expense ledger entry reversing the accrual.
	Cancel(ctx context.Context, ownerID, invoiceID int64) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, ownerID, invoiceID int64) (*domain.Invoice, error)
	ListByRental(ctx context.Context, rentalID int64) ([]domain.Invoice, error)
}

// ApplyResult reports the outcome of reconciling one payment event.
type ApplyResult struct {
	Invoice          *domain.Invoice `json:"invoice"`
	Payment          *domain.Payment `json:"payment"`
	OverpaymentCents int64           `json:"overpayment_cents,omitempty"`
	// Duplicate marks an idempotent re-delivery; nothing was changed.
	Duplicate bool `json:"duplicate,omitempty"`
}

type PaymentService interface {
	// ApplyCompleted applies a completed payment to its invoice. The
	// payment id is the idempotency key; re-application returns a result
	// flagged Duplicate wrapping *domain.DuplicatePaymentError.
	ApplyCompleted(ctx context.Context, payment *domain.Payment) (*ApplyResult, error)
	// ApplyRefund reverses a completed payment, flooring amount_paid at
	// zero and reverting a no-longer-covered invoice to SENT.
	ApplyRefund(ctx context.Context, ownerID int64, paymentID string, processedAt time.Time) (*ApplyResult, error)
	// Record stores a pending or failed payment event without touching any
	// invoice. Re-delivery of the same id is a no-op.
	Record(ctx context.Context, payment *domain.Payment) error
	ListByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.Payment, error)
}

type LedgerService interface {
	// Record validates and appends an immutable entry.
	Record(ctx context.Context, entry *domain.LedgerEntry) error
	// Reconcile returns the signed ledger balance for a scope.
	Reconcile(ctx context.Context, ownerID int64, scope domain.LedgerScope) (int64, error)
	ListEntries(ctx context.Context, ownerID int64, scope domain.LedgerScope, from, to time.Time) ([]domain.LedgerEntry, error)
}

// CycleStats summarizes one billing cycle run.
type CycleStats struct {
	AsOf              time.Time `json:"as_of"`
	RentalsProcessed  int       `json:"rentals_processed"`
	InvoicesGenerated int       `json:"invoices_generated"`
	InvoicesSent      int       `json:"invoices_sent"`
	InvoicesOverdue   int       `json:"invoices_overdue"`
	RentalsExpired    int       `json:"rentals_expired"`
	Errors            int       `json:"errors"`
}

// ReconciliationReport cross-checks the ledger against invoices and payments
// for one rental.
type ReconciliationReport struct {
	RentalID           int64 `json:"rental_id"`
	LedgerBalanceCents int64 `json:"ledger_balance_cents"`
	InvoicedCents      int64 `json:"invoiced_cents"`  // sent, paid and overdue invoices
	CancelledCents     int64 `json:"cancelled_cents"` // cancelled invoices
	CollectedCents     int64 `json:"collected_cents"` // completed payments
	AdjustmentCents    int64 `json:"adjustment_cents"`
	Balanced           bool  `json:"balanced"`
}

type BillingService interface {
	// RunBillingCycle advances every active rental as of the given date:
	// period rollover, invoice sending, overdue marking, auto-expiry.
	RunBillingCycle(ctx context.Context, asOf time.Time) (*CycleStats, error)
	// OnPaymentEvent is the webhook entry point for the payment capture
	// service; it routes by reported payment status.
	OnPaymentEvent(ctx context.Context, payment *domain.Payment) (*ApplyResult, error)
	Reconcile(ctx context.Context, ownerID, rentalID int64) (*ReconciliationReport, error)
	ListInvoices(ctx context.Context, ownerID int64, status string, from, to time.Time) ([]domain.Invoice, error)
	ListPayments(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.Payment, error)
	ListLedgerEntries(ctx context.Context, ownerID int64, scope domain.LedgerScope, from, to time.Time) ([]domain.LedgerEntry, error)
}

// SignatureService confirms a rental agreement was signed. Implementations
// must respect the context deadline; the caller leaves entity state untouched
// on timeout.
type SignatureService interface {
	ConfirmSignature(ctx context.Context, rental *domain.Rental) (bool, error)
}

// EmailService delivers operational notices. Delivery failures are logged by
// callers and never roll back billing state.
type EmailService interface {
	SendInvoiceIssuedNotice(ctx context.Context, invoice *domain.Invoice) error
	SendOverdueNotice(ctx context.Context, invoice *domain.Invoice) error
	SendOverdueDigest(ctx context.Context, invoices []domain.Invoice) error
}
