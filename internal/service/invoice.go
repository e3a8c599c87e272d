package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/repository"
	"selfstore-backend/internal/utils"
)

type invoiceService struct {
	tx          repository.TxRunner
	invoiceRepo repository.InvoiceRepository
	ledgerSvc   LedgerService
	locks       *RentalLocks
}

func NewInvoiceService(tx repository.TxRunner, invoiceRepo repository.InvoiceRepository, ledgerSvc LedgerService, locks *RentalLocks) InvoiceService {
	return &invoiceService{tx: tx, invoiceRepo: invoiceRepo, ledgerSvc: ledgerSvc, locks: locks}
}

// invoiceNumber is deterministic so that concurrent generation of the same
// period collides on the (owner_id, invoice_number) constraint instead of
// minting a second invoice.
func invoiceNumber(rentalID int64, periodStart time.Time) string {
	return fmt.Sprintf("INV-%d-%s", rentalID, periodStart.Format("200601"))
}

func finalInvoiceNumber(rentalID int64) string {
	return fmt.Sprintf("INV-%d-FINAL", rentalID)
}

func (s *invoiceService) GenerateForPeriod(ctx context.Context, rental *domain.Rental, periodStart, periodEnd time.Time) (*domain.Invoice, error) {
	if rental.Status != domain.RentalStatusActive {
		return nil, domain.NewValidationError("status", "invoices are only generated for active rentals")
	}

	existing, err := s.invoiceRepo.GetByRentalAndPeriod(ctx, rental.ID, periodStart)
	if err == nil {
		// Duplicate generation is an idempotent no-op.
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	lateFee, err := s.lateFeeFor(ctx, rental, periodStart)
	if err != nil {
		return nil, err
	}

	invoice, err := domain.NewInvoice(
		rental.OwnerID, rental.CustomerID, rental.ID,
		invoiceNumber(rental.ID, periodStart),
		periodStart, periodEnd,
		periodStart, // billing in advance: due on the day the period starts
		rental.MonthlyRateCents+lateFee,
	)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return s.invoiceRepo.GetByRentalAndPeriod(ctx, rental.ID, periodStart)
		}
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) GenerateFinal(ctx context.Context, rental *domain.Rental, periodStart, periodEnd, usedThrough time.Time) (*domain.Invoice, error) {
	if rental.Status != domain.RentalStatusActive {
		return nil, domain.NewValidationError("status", "invoices are only generated for active rentals")
	}

	existing, err := s.invoiceRepo.GetByRentalAndPeriod(ctx, rental.ID, periodStart)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	amount := utils.ProratedCents(rental.MonthlyRateCents, periodStart, periodEnd, usedThrough)
	if amount <= 0 {
		return nil, nil
	}

	invoice, err := domain.NewInvoice(
		rental.OwnerID, rental.CustomerID, rental.ID,
		finalInvoiceNumber(rental.ID),
		periodStart, utils.DateOnly(usedThrough),
		periodStart,
		amount,
	)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return s.invoiceRepo.GetByRentalAndPeriod(ctx, rental.ID, periodStart)
		}
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) Send(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Transition(domain.InvoiceStatusSent); err != nil {
		return err
	}
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return err
	}

	category := domain.CategoryRent
	if strings.HasSuffix(invoice.InvoiceNumber, "-FINAL") {
		category = domain.CategoryProration
	}
	// Accrual: income is recognized exactly once, when the invoice is sent.
	entry := &domain.LedgerEntry{
		OwnerID:     invoice.OwnerID,
		CustomerID:  &invoice.CustomerID,
		RentalID:    &invoice.RentalID,
		Type:        domain.EntryTypeIncome,
		Category:    category,
		Description: fmt.Sprintf("Invoice %s issued for period %s to %s", invoice.InvoiceNumber, invoice.PeriodStart.Format("2006-01-02"), invoice.PeriodEnd.Format("2006-01-02")),
		AmountCents: invoice.AmountDueCents,
		EntryDate:   utils.DateOnly(time.Now().UTC()),
	}
	return s.ledgerSvc.Record(ctx, entry)
}

func (s *invoiceService) Cancel(ctx context.Context, ownerID, invoiceID int64) (*domain.Invoice, error) {
	// The pre-read only resolves the rental to lock; the cancellation itself
	// works on a fresh copy inside the transaction.
	peek, err := s.invoiceRepo.GetByID(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	release := s.locks.Acquire(peek.RentalID)
	defer release()

	var invoice *domain.Invoice
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		invoice, err = s.invoiceRepo.GetByID(ctx, ownerID, invoiceID)
		if err != nil {
			return err
		}
		accrued := invoice.Status != domain.InvoiceStatusDraft
		if err := invoice.Transition(domain.InvoiceStatusCancelled); err != nil {
			return err
		}
		if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
			return err
		}
		if !accrued {
			return nil
		}
		// The reversing entry commits with the status flip or not at all.
		entry := &domain.LedgerEntry{
			OwnerID:     invoice.OwnerID,
			CustomerID:  &invoice.CustomerID,
			RentalID:    &invoice.RentalID,
			Type:        domain.EntryTypeExpense,
			Category:    domain.CategoryCancellation,
			Description: fmt.Sprintf("Invoice %s cancelled", invoice.InvoiceNumber),
			AmountCents: invoice.AmountDueCents,
			EntryDate:   utils.DateOnly(time.Now().UTC()),
		}
		return s.ledgerSvc.Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, ownerID, invoiceID int64) (*domain.Invoice, error) {
	return s.invoiceRepo.GetByID(ctx, ownerID, invoiceID)
}

func (s *invoiceService) ListByRental(ctx context.Context, rentalID int64) ([]domain.Invoice, error) {
	return s.invoiceRepo.ListByRental(ctx, rentalID)
}

// lateFeeFor charges a flat fee per fully elapsed period since the oldest
// open invoice's due date. Fees never compound on earlier fees.
func (s *invoiceService) lateFeeFor(ctx context.Context, rental *domain.Rental, periodStart time.Time) (int64, error) {
	if rental.LateFeeBps <= 0 {
		return 0, nil
	}
	invoices, err := s.invoiceRepo.ListByRental(ctx, rental.ID)
	if err != nil {
		return 0, err
	}
	var oldestDue *time.Time
	for i := range invoices {
		inv := &invoices[i]
		if !inv.Open() || inv.OutstandingCents() == 0 {
			continue
		}
		if oldestDue == nil || inv.DueDate.Before(*oldestDue) {
			due := inv.DueDate
			oldestDue = &due
		}
	}
	if oldestDue == nil {
		return 0, nil
	}
	overduePeriods := utils.WholeMonthsBetween(*oldestDue, periodStart)
	return utils.LateFeeCents(rental.MonthlyRateCents, rental.LateFeeBps, overduePeriods), nil
}
