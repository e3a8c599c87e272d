package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/repository"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, owner_id, invoice_id, customer_id, amount_cents, payment_method_id,
	COALESCE(transaction_id, ''), status, processed_at, created_at`

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `INSERT INTO payments (id, owner_id, invoice_id, customer_id, amount_cents,
	          payment_method_id, transaction_id, status, processed_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	          RETURNING created_at`
	err := q(ctx, r.db).QueryRowContext(ctx, query,
		payment.ID, payment.OwnerID, payment.InvoiceID, payment.CustomerID,
		payment.AmountCents, payment.PaymentMethodID, payment.TransactionID,
		payment.Status, payment.ProcessedAt,
	).Scan(&payment.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		// The payment id is the idempotency key; a second application of the
		// same completed payment must be rejected, not re-applied.
		return &domain.DuplicatePaymentError{PaymentID: payment.ID, InvoiceID: payment.InvoiceID}
	}
	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, ownerID int64, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND owner_id = $2`
	payment, err := scanPayment(q(ctx, r.db).QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return payment, err
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `UPDATE payments SET status = $1, processed_at = $2 WHERE id = $3 AND owner_id = $4`
	res, err := q(ctx, r.db).ExecContext(ctx, query, payment.Status, payment.ProcessedAt, payment.ID, payment.OwnerID)
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

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID int64) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1 ORDER BY processed_at, id`
	return r.list(ctx, query, invoiceID)
}

func (r *paymentRepository) ListByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
	          WHERE owner_id = $1 AND processed_at >= $2 AND processed_at <= $3
	          ORDER BY processed_at, id`
	return r.list(ctx, query, ownerID, from, to)
}

func (r *paymentRepository) SumCompletedByInvoice(ctx context.Context, invoiceID int64) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE invoice_id = $1 AND status = $2`
	err := q(ctx, r.db).QueryRowContext(ctx, query, invoiceID, domain.PaymentStatusCompleted).Scan(&sum)
	return sum, err
}

func (r *paymentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	err := row.Scan(
		&payment.ID, &payment.OwnerID, &payment.InvoiceID, &payment.CustomerID,
		&payment.AmountCents, &payment.PaymentMethodID, &payment.TransactionID,
		&payment.Status, &payment.ProcessedAt, &payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
