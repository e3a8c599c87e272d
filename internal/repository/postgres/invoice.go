package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/repository"
)

type invoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) repository.InvoiceRepository {
	return &invoiceRepository{db: db}
}

const invoiceColumns = `id, owner_id, customer_id, rental_id, invoice_number, period_start, period_end,
	amount_due_cents, amount_paid_cents, due_date, status, paid_at, created_at, updated_at`

func (r *invoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	query := `INSERT INTO invoices (owner_id, customer_id, rental_id, invoice_number, period_start, period_end,
	          amount_due_cents, amount_paid_cents, due_date, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	          RETURNING id, created_at, updated_at`
	err := q(ctx, r.db).QueryRowContext(ctx, query,
		invoice.OwnerID, invoice.CustomerID, invoice.RentalID, invoice.InvoiceNumber,
		invoice.PeriodStart, invoice.PeriodEnd, invoice.AmountDueCents, invoice.AmountPaidCents,
		invoice.DueDate, invoice.Status,
	).Scan(&invoice.ID, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		// (rental_id, period_start) or (owner_id, invoice_number) raced with
		// another generator run; the caller re-reads the existing row.
		return domain.ErrConcurrencyConflict
	}
	return err
}

func (r *invoiceRepository) GetByID(ctx context.Context, ownerID, id int64) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND owner_id = $2`
	invoice, err := scanInvoice(q(ctx, r.db).QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return invoice, err
}

func (r *invoiceRepository) GetByRentalAndPeriod(ctx context.Context, rentalID int64, periodStart time.Time) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE rental_id = $1 AND period_start = $2`
	invoice, err := scanInvoice(q(ctx, r.db).QueryRowContext(ctx, query, rentalID, periodStart))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return invoice, err
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	query := `UPDATE invoices SET amount_paid_cents = $1, status = $2, paid_at = $3, updated_at = NOW()
	          WHERE id = $4 AND owner_id = $5`
	res, err := q(ctx, r.db).ExecContext(ctx, query,
		invoice.AmountPaidCents, invoice.Status, invoice.PaidAt, invoice.ID, invoice.OwnerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *invoiceRepository) ListByRental(ctx context.Context, rentalID int64) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE rental_id = $1 ORDER BY period_start`
	return r.list(ctx, query, rentalID)
}

func (r *invoiceRepository) ListByOwner(ctx context.Context, ownerID int64, status string, from, to time.Time) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
	          WHERE owner_id = $1 AND ($2 = '' OR status = $2)
	            AND period_start >= $3 AND period_start <= $4
	          ORDER BY period_start, id`
	return r.list(ctx, query, ownerID, status, from, to)
}

func (r *invoiceRepository) ListUnpaidDue(ctx context.Context, ownerID int64, asOf time.Time) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
	          WHERE owner_id = $1 AND status = $2 AND due_date < $3 AND amount_paid_cents < amount_due_cents
	          ORDER BY due_date, id`
	return r.list(ctx, query, ownerID, domain.InvoiceStatusSent, asOf)
}

func (r *invoiceRepository) ListOverdue(ctx context.Context) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
	          WHERE status = $1 AND amount_paid_cents < amount_due_cents
	          ORDER BY due_date, id`
	return r.list(ctx, query, domain.InvoiceStatusOverdue)
}

func (r *invoiceRepository) LastPeriodEnd(ctx context.Context, rentalID int64) (time.Time, error) {
	var end sql.NullTime
	query := `SELECT MAX(period_end) FROM invoices WHERE rental_id = $1 AND status <> $2`
	err := q(ctx, r.db).QueryRowContext(ctx, query, rentalID, domain.InvoiceStatusCancelled).Scan(&end)
	if err != nil {
		return time.Time{}, err
	}
	if !end.Valid {
		return time.Time{}, domain.ErrNotFound
	}
	return end.Time, nil
}

func (r *invoiceRepository) list(ctx context.Context, query string, args ...any) ([]domain.Invoice, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *invoice)
	}
	return invoices, rows.Err()
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := row.Scan(
		&invoice.ID, &invoice.OwnerID, &invoice.CustomerID, &invoice.RentalID,
		&invoice.InvoiceNumber, &invoice.PeriodStart, &invoice.PeriodEnd,
		&invoice.AmountDueCents, &invoice.AmountPaidCents, &invoice.DueDate,
		&invoice.Status, &invoice.PaidAt, &invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
