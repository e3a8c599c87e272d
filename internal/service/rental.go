package service

import (
	"context"
	"errors"
	"time"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/logger"
	"selfstore-backend/internal/repository"
	"selfstore-backend/internal/utils"
)

type rentalService struct {
	tx           repository.TxRunner
	rentalRepo   repository.RentalRepository
	invoiceRepo  repository.InvoiceRepository
	invoiceSvc   InvoiceService
	signatureSvc SignatureService
	locks        *RentalLocks
}

func NewRentalService(tx repository.TxRunner, rentalRepo repository.RentalRepository, invoiceRepo repository.InvoiceRepository, invoiceSvc InvoiceService, signatureSvc SignatureService, locks *RentalLocks) RentalService {
	return &rentalService{
		tx:           tx,
		rentalRepo:   rentalRepo,
		invoiceRepo:  invoiceRepo,
		invoiceSvc:   invoiceSvc,
		signatureSvc: signatureSvc,
		locks:        locks,
	}
}

func (s *rentalService) CreateRental(ctx context.Context, ownerID int64, input CreateRentalInput) (*domain.Rental, error) {
	rental, err := domain.NewRental(
		ownerID, input.FacilityID, input.CustomerID, input.UnitID,
		utils.DateOnly(input.StartDate), dateOnlyPtr(input.EndDate),
		input.MonthlyRateCents, input.SecurityDepositCents, input.LateFeeBps,
		input.AutoRenew, input.InsuranceRequired,
		input.InsuranceProvider, input.InsurancePolicyNumber,
	)
	if err != nil {
		return nil, err
	}
	if err := s.rentalRepo.Create(ctx, rental); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "rental created", "rental_id", rental.ID, "owner_id", ownerID, "unit_id", rental.UnitID)
	return rental, nil
}

func (s *rentalService) SubmitForSignature(ctx context.Context, ownerID, rentalID int64) (*domain.Rental, error) {
	release := s.locks.Acquire(rentalID)
	defer release()

	rental, err := s.rentalRepo.GetByID(ctx, ownerID, rentalID)
	if err != nil {
		return nil, err
	}
	if err := rental.ReadyForSignature(); err != nil {
		return nil, err
	}
	if err := rental.Transition(domain.RentalStatusPendingSignature); err != nil {
		return nil, err
	}
	if err := s.rentalRepo.Update(ctx, rental); err != nil {
		return nil, err
	}
	return rental, nil
}

func (s *rentalService) ActivateRental(ctx context.Context, ownerID, rentalID int64) (*domain.Rental, *domain.Invoice, error) {
	release := s.locks.Acquire(rentalID)
	defer release()

	rental, err := s.rentalRepo.GetByID(ctx, ownerID, rentalID)
	if err != nil {
		return nil, nil, err
	}
	if !rental.CanTransition(domain.RentalStatusActive) {
		return nil, nil, &domain.InvalidStateTransitionError{
			Entity:  "rental",
			ID:      rental.ID,
			Current: string(rental.Status),
			Target:  string(domain.RentalStatusActive),
		}
	}

	// The signature provider is consulted before any state changes; on
	// timeout or refusal the rental stays PENDING_SIGNATURE untouched.
	signed, err := s.signatureSvc.ConfirmSignature(ctx, rental)
	if err != nil {
		return nil, nil, err
	}
	if !signed {
		return nil, nil, domain.NewValidationError("signature", "agreement has not been signed")
	}

	var invoice *domain.Invoice
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Re-read inside the transaction; the closure may run again after
		// a serialization retry.
		fresh, err := s.rentalRepo.GetByID(ctx, ownerID, rentalID)
		if err != nil {
			return err
		}
		if err := fresh.Transition(domain.RentalStatusActive); err != nil {
			return err
		}
		if err := s.rentalRepo.Update(ctx, fresh); err != nil {
			return err
		}
		periodStart, periodEnd := utils.PeriodBounds(fresh.StartDate, 0)
		invoice, err = s.invoiceSvc.GenerateForPeriod(ctx, fresh, periodStart, periodEnd)
		if err != nil {
			return err
		}
		rental = fresh
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	logger.InfoContext(ctx, "rental activated", "rental_id", rental.ID, "invoice_id", invoice.ID)
	return rental, invoice, nil
}

func (s *rentalService) TerminateRental(ctx context.Context, ownerID, rentalID int64, effective time.Time) (*domain.Rental, *domain.Invoice, error) {
	release := s.locks.Acquire(rentalID)
	defer release()

	effective = utils.DateOnly(effective)

	var (
		rental *domain.Rental
		final  *domain.Invoice
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rental, err = s.rentalRepo.GetByID(ctx, ownerID, rentalID)
		if err != nil {
			return err
		}
		if !rental.CanTransition(domain.RentalStatusTerminated) {
			return &domain.InvalidStateTransitionError{
				Entity:  "rental",
				ID:      rental.ID,
				Current: string(rental.Status),
				Target:  string(domain.RentalStatusTerminated),
			}
		}
		if effective.Before(rental.StartDate) {
			return domain.NewValidationError("effective_date", "must not precede the rental start date")
		}
		// Billing cannot run backwards: the last invoiced period stands.
		lastEnd, err := s.invoiceRepo.LastPeriodEnd(ctx, rentalID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err == nil && effective.Before(lastEnd) {
			return domain.NewValidationError("effective_date", "must not precede the last invoiced period end")
		}

		final, err = s.billThrough(ctx, rental, effective)
		if err != nil {
			return err
		}

		if err := rental.Transition(domain.RentalStatusTerminated); err != nil {
			return err
		}
		terminatedAt := effective
		rental.TerminatedAt = &terminatedAt
		return s.rentalRepo.Update(ctx, rental)
	})
	if err != nil {
		return nil, nil, err
	}
	logger.InfoContext(ctx, "rental terminated", "rental_id", rentalID, "effective", effective.Format("2006-01-02"))
	return rental, final, nil
}

// billThrough generates and sends every invoice the rental owes up to and
// including the effective date: whole periods first, then a prorated final
// invoice when the date falls mid-period.
func (s *rentalService) billThrough(ctx context.Context, rental *domain.Rental, effective time.Time) (*domain.Invoice, error) {
	var final *domain.Invoice
	for n := 0; ; n++ {
		periodStart, periodEnd := utils.PeriodBounds(rental.StartDate, n)
		if periodStart.After(effective) {
			break
		}
		if !periodEnd.After(effective) {
			invoice, err := s.invoiceSvc.GenerateForPeriod(ctx, rental, periodStart, periodEnd)
			if err != nil {
				return nil, err
			}
			if invoice.Status == domain.InvoiceStatusDraft {
				if err := s.invoiceSvc.Send(ctx, invoice); err != nil {
					return nil, err
				}
			}
			continue
		}
		invoice, err := s.invoiceSvc.GenerateFinal(ctx, rental, periodStart, periodEnd, effective)
		if err != nil {
			return nil, err
		}
		if invoice != nil && invoice.Status == domain.InvoiceStatusDraft {
			if err := s.invoiceSvc.Send(ctx, invoice); err != nil {
				return nil, err
			}
		}
		final = invoice
		break
	}
	return final, nil
}

func (s *rentalService) GetRental(ctx context.Context, ownerID, rentalID int64) (*domain.Rental, error) {
	return s.rentalRepo.GetByID(ctx, ownerID, rentalID)
}

func (s *rentalService) ListRentals(ctx context.Context, ownerID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	return s.rentalRepo.ListByOwner(ctx, ownerID, status, page, pageSize)
}

func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := utils.DateOnly(*t)
	return &d
}
