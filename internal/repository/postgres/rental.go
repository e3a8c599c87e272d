package postgres

import (
	"context"
	"database/sql"
	"errors"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/repository"
)

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

const rentalColumns = `id, owner_id, facility_id, customer_id, unit_id, start_date, end_date,
	monthly_rate_cents, security_deposit_cents, late_fee_bps, auto_renew,
	insurance_required, COALESCE(insurance_provider, ''), COALESCE(insurance_policy_number, ''),
	status, terminated_at, created_at, updated_at`

func (r *rentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	query := `INSERT INTO rentals (owner_id, facility_id, customer_id, unit_id, start_date, end_date,
	          monthly_rate_cents, security_deposit_cents, late_fee_bps, auto_renew,
	          insurance_required, insurance_provider, insurance_policy_number, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	          RETURNING id, created_at, updated_at`
	return q(ctx, r.db).QueryRowContext(ctx, query,
		rental.OwnerID, rental.FacilityID, rental.CustomerID, rental.UnitID,
		rental.StartDate, rental.EndDate, rental.MonthlyRateCents, rental.SecurityDepositCents,
		rental.LateFeeBps, rental.AutoRenew, rental.InsuranceRequired,
		rental.InsuranceProvider, rental.InsurancePolicyNumber, rental.Status,
	).Scan(&rental.ID, &rental.CreatedAt, &rental.UpdatedAt)
}

func (r *rentalRepository) GetByID(ctx context.Context, ownerID, id int64) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 AND owner_id = $2`
	rental, err := scanRental(q(ctx, r.db).QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rental, err
}

func (r *rentalRepository) Update(ctx context.Context, rental *domain.Rental) error {
	query := `UPDATE rentals SET end_date = $1, monthly_rate_cents = $2, security_deposit_cents = $3,
	          late_fee_bps = $4, auto_renew = $5, insurance_required = $6, insurance_provider = $7,
	          insurance_policy_number = $8, status = $9, terminated_at = $10, updated_at = NOW()
	          WHERE id = $11 AND owner_id = $12`
	res, err := q(ctx, r.db).ExecContext(ctx, query,
		rental.EndDate, rental.MonthlyRateCents, rental.SecurityDepositCents,
		rental.LateFeeBps, rental.AutoRenew, rental.InsuranceRequired,
		rental.InsuranceProvider, rental.InsurancePolicyNumber, rental.Status,
		rental.TerminatedAt, rental.ID, rental.OwnerID)
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

func (r *rentalRepository) ListByOwner(ctx context.Context, ownerID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE owner_id = $1 AND ($2 = '' OR status = $2)
	          ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, ownerID, status, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, 0, err
		}
		rentals = append(rentals, *rental)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var count int32
	countQuery := `SELECT count(*) FROM rentals WHERE owner_id = $1 AND ($2 = '' OR status = $2)`
	if err := q(ctx, r.db).QueryRowContext(ctx, countQuery, ownerID, status).Scan(&count); err != nil {
		return nil, 0, err
	}
	return rentals, count, nil
}

func (r *rentalRepository) ListActive(ctx context.Context, ownerID int64) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE owner_id = $1 AND status = $2 ORDER BY id`
	return r.collect(ctx, query, ownerID, domain.RentalStatusActive)
}

func (r *rentalRepository) ListAllActive(ctx context.Context) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE status = $1 ORDER BY id`
	return r.collect(ctx, query, domain.RentalStatusActive)
}

func (r *rentalRepository) collect(ctx context.Context, query string, args ...any) ([]domain.Rental, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rental)
	}
	return rentals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	var rental domain.Rental
	err := row.Scan(
		&rental.ID, &rental.OwnerID, &rental.FacilityID, &rental.CustomerID, &rental.UnitID,
		&rental.StartDate, &rental.EndDate, &rental.MonthlyRateCents, &rental.SecurityDepositCents,
		&rental.LateFeeBps, &rental.AutoRenew, &rental.InsuranceRequired,
		&rental.InsuranceProvider, &rental.InsurancePolicyNumber, &rental.Status,
		&rental.TerminatedAt, &rental.CreatedAt, &rental.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rental, nil
}
