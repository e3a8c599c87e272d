package repository

import (
	"context"
	"time"

	"selfstore-backend/internal/domain"
)

// TxRunner executes fn inside a single database transaction. Repository
// methods called with the context passed to fn share that transaction, so a
// logical unit (invoice update + ledger append + rental status) commits or
// rolls back as one.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, ownerID, id int64) (*domain.Rental, error)
	Update(ctx context.Context, rental *domain.Rental) error
	ListByOwner(ctx context.Context, ownerID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error)
	ListActive(ctx context.Context, ownerID int64) ([]domain.Rental, error)
	// ListAllActive returns active rentals across all owners for the
	// scheduler-driven billing cycle.
	ListAllActive(ctx context.Context) ([]domain.Rental, error)
}

type InvoiceRepository interface {
	// Create inserts the invoice. A duplicate (rental_id, period_start) or
	// (owner_id, invoice_number) returns domain.ErrConcurrencyConflict via
	// the unique constraint so generation stays idempotent.
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, ownerID, id int64) (*domain.Invoice, error)
	GetByRentalAndPeriod(ctx context.Context, rentalID int64, periodStart time.Time) (*domain.Invoice, error)
	Update(ctx context.Context, invoice *domain.Invoice) error
	ListByRental(ctx context.Context, rentalID int64) ([]domain.Invoice, error)
	ListByOwner(ctx context.Context, ownerID int64, status string, from, to time.Time) ([]domain.Invoice, error)
	// ListUnpaidDue returns SENT invoices whose due date passed as of the
	// given date, for the overdue sweep.
	ListUnpaidDue(ctx context.Context, ownerID int64, asOf time.Time) ([]domain.Invoice, error)
	// ListOverdue returns OVERDUE invoices across all owners for the
	// operations digest.
	ListOverdue(ctx context.Context) ([]domain.Invoice, error)
	// LastPeriodEnd returns the latest invoiced period_end for a rental, or
	// domain.ErrNotFound when nothing was invoiced yet.
	LastPeriodEnd(ctx context.Context, rentalID int64) (time.Time, error)
}

type PaymentRepository interface {
	// Create inserts the payment row keyed by its capture-service id.
	// A duplicate id fails with a *domain.DuplicatePaymentError.
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, ownerID int64, id string) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
	ListByInvoice(ctx context.Context, invoiceID int64) ([]domain.Payment, error)
	ListByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.Payment, error)
	SumCompletedByInvoice(ctx context.Context, invoiceID int64) (int64, error)
}

type LedgerRepository interface {
	// Append inserts an immutable entry, assigning a monotonically
	// increasing sequence within the owner. No update or delete exists.
	Append(ctx context.Context, entry *domain.LedgerEntry) error
	ListByScope(ctx context.Context, ownerID int64, scope domain.LedgerScope, from, to time.Time) ([]domain.LedgerEntry, error)
	// BalanceByScope sums signed entry amounts (income - expense +/-
	// adjustment by category) for the scope.
	BalanceByScope(ctx context.Context, ownerID int64, scope domain.LedgerScope) (int64, error)
}
