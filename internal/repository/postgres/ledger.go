package postgres

import (
	"context"
	"database/sql"
	"time"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/repository"
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	// seq is assigned from the owner's current maximum inside the same
	// statement; the surrounding serializable transaction keeps it monotonic.
	query := `INSERT INTO ledger_entries (owner_id, facility_id, customer_id, rental_id, type, category,
	          description, amount_cents, entry_date, payment_id, seq, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
	                  (SELECT COALESCE(MAX(seq), 0) + 1 FROM ledger_entries WHERE owner_id = $1), NOW())
	          RETURNING id, seq, created_at`
	return q(ctx, r.db).QueryRowContext(ctx, query,
		entry.OwnerID, entry.FacilityID, entry.CustomerID, entry.RentalID,
		entry.Type, entry.Category, entry.Description, entry.AmountCents,
		entry.EntryDate, entry.PaymentID,
	).Scan(&entry.ID, &entry.Seq, &entry.CreatedAt)
}

func (r *ledgerRepository) ListByScope(ctx context.Context, ownerID int64, scope domain.LedgerScope, from, to time.Time) ([]domain.LedgerEntry, error) {
	query := `SELECT id, owner_id, facility_id, customer_id, rental_id, type, category,
	          COALESCE(description, ''), amount_cents, entry_date, payment_id, seq, created_at
	          FROM ledger_entries
	          WHERE owner_id = $1
	            AND ($2::bigint IS NULL OR facility_id = $2)
	            AND ($3::bigint IS NULL OR customer_id = $3)
	            AND ($4::bigint IS NULL OR rental_id = $4)
	            AND entry_date >= $5 AND entry_date <= $6
	          ORDER BY seq`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, ownerID, scope.FacilityID, scope.CustomerID, scope.RentalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(
			&entry.ID, &entry.OwnerID, &entry.FacilityID, &entry.CustomerID, &entry.RentalID,
			&entry.Type, &entry.Category, &entry.Description, &entry.AmountCents,
			&entry.EntryDate, &entry.PaymentID, &entry.Seq, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *ledgerRepository) BalanceByScope(ctx context.Context, ownerID int64, scope domain.LedgerScope) (int64, error) {
	// income adds, expense subtracts, adjustments add unless the category
	// marks them as a refund reversal.
	query := `SELECT COALESCE(SUM(CASE
	            WHEN type = 'EXPENSE' THEN -amount_cents
	            WHEN type = 'ADJUSTMENT' AND category = 'REFUND' THEN -amount_cents
	            ELSE amount_cents
	          END), 0)
	          FROM ledger_entries
	          WHERE owner_id = $1
	            AND ($2::bigint IS NULL OR facility_id = $2)
	            AND ($3::bigint IS NULL OR customer_id = $3)
	            AND ($4::bigint IS NULL OR rental_id = $4)`
	var balance int64
	err := q(ctx, r.db).QueryRowContext(ctx, query, ownerID, scope.FacilityID, scope.CustomerID, scope.RentalID).Scan(&balance)
	return balance, err
}
