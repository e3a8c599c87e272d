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

type billingService struct {
	tx           repository.TxRunner
	rentalRepo   repository.RentalRepository
	invoiceRepo  repository.InvoiceRepository
	paymentRepo  repository.PaymentRepository
	invoiceSvc   InvoiceService
	paymentSvc   PaymentService
	ledgerSvc    LedgerService
	emailSvc     EmailService
	locks        *RentalLocks
	sendLeadDays int
}

func NewBillingService(
	tx repository.TxRunner,
	rentalRepo repository.RentalRepository,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	invoiceSvc InvoiceService,
	paymentSvc PaymentService,
	ledgerSvc LedgerService,
	emailSvc EmailService,
	locks *RentalLocks,
	sendLeadDays int,
) BillingService {
	return &billingService{
		tx:           tx,
		rentalRepo:   rentalRepo,
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		invoiceSvc:   invoiceSvc,
		paymentSvc:   paymentSvc,
		ledgerSvc:    ledgerSvc,
		emailSvc:     emailSvc,
		locks:        locks,
		sendLeadDays: sendLeadDays,
	}
}

func (s *billingService) RunBillingCycle(ctx context.Context, asOf time.Time) (*CycleStats, error) {
	asOf = utils.DateOnly(asOf)
	stats := &CycleStats{AsOf: asOf}

	rentals, err := s.rentalRepo.ListAllActive(ctx)
	if err != nil {
		return nil, err
	}

	for i := range rentals {
		rental := &rentals[i]
		// One rental failing must not stop the sweep over the rest.
		if err := s.advanceRental(ctx, rental, asOf, stats); err != nil {
			stats.Errors++
			logger.ErrorContext(ctx, "billing cycle: rental failed", "rental_id", rental.ID, "error", err)
			continue
		}
		stats.RentalsProcessed++
	}

	logger.InfoContext(ctx, "billing cycle finished",
		"as_of", asOf.Format("2006-01-02"),
		"rentals", stats.RentalsProcessed,
		"generated", stats.InvoicesGenerated,
		"sent", stats.InvoicesSent,
		"overdue", stats.InvoicesOverdue,
		"expired", stats.RentalsExpired,
		"errors", stats.Errors)
	return stats, nil
}

// advanceRental moves one rental forward to asOf: fixed-term handling first,
// then invoice generation within the send lead window, draft sending, and
// the overdue sweep. Notices go out only after the transaction commits.
func (s *billingService) advanceRental(ctx context.Context, rental *domain.Rental, asOf time.Time, stats *CycleStats) error {
	release := s.locks.Acquire(rental.ID)
	defer release()

	var issued, overdue []domain.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		issued = issued[:0]
		overdue = overdue[:0]

		// Re-read inside the transaction; the closure may run again after
		// a serialization retry.
		rental, err := s.rentalRepo.GetByID(ctx, rental.OwnerID, rental.ID)
		if err != nil {
			return err
		}
		if rental.Status != domain.RentalStatusActive {
			return nil
		}

		if rental.EndDate != nil && asOf.After(*rental.EndDate) {
			if !rental.AutoRenew {
				expired, err := s.expireRental(ctx, rental, stats)
				if err != nil {
					return err
				}
				issued = append(issued, expired...)
				return nil
			}
			// Auto-renew rolls the term forward by whole periods until it
			// covers asOf again.
			end := *rental.EndDate
			for asOf.After(end) {
				end = end.AddDate(0, 1, 0)
			}
			rental.EndDate = &end
			if err := s.rentalRepo.Update(ctx, rental); err != nil {
				return err
			}
		}

		horizon := asOf.AddDate(0, 0, s.sendLeadDays)
		if rental.EndDate != nil && horizon.After(*rental.EndDate) {
			horizon = *rental.EndDate
		}
		if err := s.generateThrough(ctx, rental, horizon, stats); err != nil {
			return err
		}

		// Notices come from the post-send sweep only; a draft generated in
		// this run is picked up there once it is actually sent.
		sent, marked, err := s.sweepInvoices(ctx, rental, asOf, horizon, stats)
		if err != nil {
			return err
		}
		issued = append(issued, sent...)
		overdue = append(overdue, marked...)
		return nil
	})
	if err != nil {
		return err
	}

	for i := range issued {
		if err := s.emailSvc.SendInvoiceIssuedNotice(ctx, &issued[i]); err != nil {
			logger.Warn("invoice notice delivery failed", "invoice_id", issued[i].ID, "error", err)
		}
	}
	for i := range overdue {
		if err := s.emailSvc.SendOverdueNotice(ctx, &overdue[i]); err != nil {
			logger.Warn("overdue notice delivery failed", "invoice_id", overdue[i].ID, "error", err)
		}
	}
	return nil
}

// generateThrough creates any missing whole-period invoices whose period
// starts on or before horizon.
func (s *billingService) generateThrough(ctx context.Context, rental *domain.Rental, horizon time.Time, stats *CycleStats) error {
	next := 0
	lastEnd, err := s.invoiceRepo.LastPeriodEnd(ctx, rental.ID)
	switch {
	case err == nil:
		next = utils.PeriodIndexAt(rental.StartDate, lastEnd) + 1
	case errors.Is(err, domain.ErrNotFound):
	default:
		return err
	}

	for n := next; ; n++ {
		periodStart, periodEnd := utils.PeriodBounds(rental.StartDate, n)
		if periodStart.After(horizon) {
			break
		}
		invoice, err := s.invoiceSvc.GenerateForPeriod(ctx, rental, periodStart, periodEnd)
		if err != nil {
			return err
		}
		if invoice.Status == domain.InvoiceStatusDraft {
			stats.InvoicesGenerated++
		}
	}
	return nil
}

// sweepInvoices sends due drafts and marks unpaid sent invoices overdue.
func (s *billingService) sweepInvoices(ctx context.Context, rental *domain.Rental, asOf, horizon time.Time, stats *CycleStats) (sent, overdue []domain.Invoice, err error) {
	invoices, err := s.invoiceRepo.ListByRental(ctx, rental.ID)
	if err != nil {
		return nil, nil, err
	}
	for i := range invoices {
		invoice := &invoices[i]
		switch {
		case invoice.Status == domain.InvoiceStatusDraft && !invoice.DueDate.After(horizon):
			if err := s.invoiceSvc.Send(ctx, invoice); err != nil {
				return nil, nil, err
			}
			stats.InvoicesSent++
			sent = append(sent, *invoice)
		case invoice.Status == domain.InvoiceStatusSent && invoice.DueDate.Before(asOf) && invoice.OutstandingCents() > 0:
			if err := invoice.Transition(domain.InvoiceStatusOverdue); err != nil {
				return nil, nil, err
			}
			if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
				return nil, nil, err
			}
			stats.InvoicesOverdue++
			overdue = append(overdue, *invoice)
		}
	}
	return sent, overdue, nil
}

// expireRental bills a non-renewing fixed-term rental through its end date,
// prorating the last slice when the end falls mid-period, then expires it.
func (s *billingService) expireRental(ctx context.Context, rental *domain.Rental, stats *CycleStats) ([]domain.Invoice, error) {
	endDate := *rental.EndDate
	var issued []domain.Invoice
	for n := 0; ; n++ {
		periodStart, periodEnd := utils.PeriodBounds(rental.StartDate, n)
		if periodStart.After(endDate) {
			break
		}
		var (
			invoice *domain.Invoice
			err     error
		)
		if !periodEnd.After(endDate) {
			invoice, err = s.invoiceSvc.GenerateForPeriod(ctx, rental, periodStart, periodEnd)
		} else {
			invoice, err = s.invoiceSvc.GenerateFinal(ctx, rental, periodStart, periodEnd, endDate)
		}
		if err != nil {
			return nil, err
		}
		if invoice != nil && invoice.Status == domain.InvoiceStatusDraft {
			if err := s.invoiceSvc.Send(ctx, invoice); err != nil {
				return nil, err
			}
			stats.InvoicesGenerated++
			stats.InvoicesSent++
			issued = append(issued, *invoice)
		}
		if periodEnd.After(endDate) {
			break
		}
	}

	if err := rental.Transition(domain.RentalStatusExpired); err != nil {
		return nil, err
	}
	if err := s.rentalRepo.Update(ctx, rental); err != nil {
		return nil, err
	}
	stats.RentalsExpired++
	logger.InfoContext(ctx, "rental expired", "rental_id", rental.ID, "end_date", endDate.Format("2006-01-02"))
	return issued, nil
}

func (s *billingService) OnPaymentEvent(ctx context.Context, payment *domain.Payment) (*ApplyResult, error) {
	switch payment.Status {
	case domain.PaymentStatusCompleted:
		return s.paymentSvc.ApplyCompleted(ctx, payment)
	case domain.PaymentStatusRefunded:
		return s.paymentSvc.ApplyRefund(ctx, payment.OwnerID, payment.ID, payment.ProcessedAt)
	case domain.PaymentStatusPending, domain.PaymentStatusFailed:
		if err := s.paymentSvc.Record(ctx, payment); err != nil {
			return nil, err
		}
		return &ApplyResult{Payment: payment}, nil
	default:
		return nil, domain.NewValidationError("status", "unknown payment status")
	}
}

func (s *billingService) Reconcile(ctx context.Context, ownerID, rentalID int64) (*ReconciliationReport, error) {
	rental, err := s.rentalRepo.GetByID(ctx, ownerID, rentalID)
	if err != nil {
		return nil, err
	}

	scope := domain.LedgerScope{RentalID: &rental.ID}
	balance, err := s.ledgerSvc.Reconcile(ctx, ownerID, scope)
	if err != nil {
		return nil, err
	}

	invoices, err := s.invoiceRepo.ListByRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	report := &ReconciliationReport{RentalID: rentalID, LedgerBalanceCents: balance}
	for i := range invoices {
		invoice := &invoices[i]
		switch invoice.Status {
		case domain.InvoiceStatusCancelled:
			report.CancelledCents += invoice.AmountDueCents
		case domain.InvoiceStatusSent, domain.InvoiceStatusPaid, domain.InvoiceStatusOverdue:
			report.InvoicedCents += invoice.AmountDueCents
		}
		collected, err := s.paymentRepo.SumCompletedByInvoice(ctx, invoice.ID)
		if err != nil {
			return nil, err
		}
		report.CollectedCents += collected
	}

	entries, err := s.ledgerSvc.ListEntries(ctx, ownerID, scope, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Type == domain.EntryTypeAdjustment {
			report.AdjustmentCents += entries[i].SignedCents()
		}
	}

	// Accrued income equals the due amounts of every live sent invoice;
	// anomalies land on both sides as adjustments.
	report.Balanced = report.LedgerBalanceCents == report.InvoicedCents+report.AdjustmentCents
	return report, nil
}

func (s *billingService) ListInvoices(ctx context.Context, ownerID int64, status string, from, to time.Time) ([]domain.Invoice, error) {
	from, to = normalizeRange(from, to)
	return s.invoiceRepo.ListByOwner(ctx, ownerID, status, from, to)
}

func (s *billingService) ListPayments(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.Payment, error) {
	from, to = normalizeRange(from, to)
	return s.paymentRepo.ListByOwner(ctx, ownerID, from, to)
}

// normalizeRange turns zero bounds into an effectively unbounded window.
func normalizeRange(from, to time.Time) (time.Time, time.Time) {
	if to.IsZero() {
		to = time.Now().UTC().AddDate(100, 0, 0)
	}
	return from, to
}

func (s *billingService) ListLedgerEntries(ctx context.Context, ownerID int64, scope domain.LedgerScope, from, to time.Time) ([]domain.LedgerEntry, error) {
	return s.ledgerSvc.ListEntries(ctx, ownerID, scope, from, to)
}
