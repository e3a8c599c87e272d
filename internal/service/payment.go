package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/repository"
	"selfstore-backend/internal/utils"
)

type paymentService struct {
	tx          repository.TxRunner
	paymentRepo repository.PaymentRepository
	invoiceRepo repository.InvoiceRepository
	ledgerSvc   LedgerService
}

func NewPaymentService(tx repository.TxRunner, paymentRepo repository.PaymentRepository, invoiceRepo repository.InvoiceRepository, ledgerSvc LedgerService) PaymentService {
	return &paymentService{tx: tx, paymentRepo: paymentRepo, invoiceRepo: invoiceRepo, ledgerSvc: ledgerSvc}
}

func (s *paymentService) ApplyCompleted(ctx context.Context, payment *domain.Payment) (*ApplyResult, error) {
	if err := payment.Validate(); err != nil {
		return nil, err
	}
	if payment.ProcessedAt.IsZero() {
		payment.ProcessedAt = time.Now().UTC()
	}
	payment.Status = domain.PaymentStatusCompleted

	var result *ApplyResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		invoice, err := s.invoiceRepo.GetByID(ctx, payment.OwnerID, payment.InvoiceID)
		if err != nil {
			return err
		}
		switch invoice.Status {
		case domain.InvoiceStatusDraft, domain.InvoiceStatusCancelled:
			return domain.NewValidationError("invoice_id", fmt.Sprintf("invoice %s does not accept payments", invoice.Status))
		}

		applied := payment
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			var dup *domain.DuplicatePaymentError
			if !errors.As(err, &dup) {
				return err
			}
			existing, err := s.paymentRepo.GetByID(ctx, payment.OwnerID, payment.ID)
			if err != nil {
				return err
			}
			if existing.Status != domain.PaymentStatusPending {
				// Re-delivered event; the first delivery already applied it.
				result = &ApplyResult{Invoice: invoice, Payment: existing, Duplicate: true}
				return nil
			}
			// A pending row recorded earlier is now confirmed completed.
			if err := existing.Transition(domain.PaymentStatusCompleted); err != nil {
				return err
			}
			existing.TransactionID = payment.TransactionID
			existing.ProcessedAt = payment.ProcessedAt
			if err := s.paymentRepo.Update(ctx, existing); err != nil {
				return err
			}
			applied = existing
		}

		invoice, overage, err := s.applyToInvoice(ctx, invoice, applied)
		if err != nil {
			return err
		}
		result = &ApplyResult{Invoice: invoice, Payment: applied, OverpaymentCents: overage}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyToInvoice credits the payment amount, marks the invoice paid on the
// first crossing of amount_due, and records an overpayment adjustment for any
// portion beyond it.
func (s *paymentService) applyToInvoice(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment) (*domain.Invoice, int64, error) {
	overageBefore := max(0, invoice.AmountPaidCents-invoice.AmountDueCents)
	invoice.AmountPaidCents += payment.AmountCents
	overageAfter := max(0, invoice.AmountPaidCents-invoice.AmountDueCents)

	if invoice.AmountPaidCents >= invoice.AmountDueCents && invoice.Open() {
		if err := invoice.Transition(domain.InvoiceStatusPaid); err != nil {
			return nil, 0, err
		}
		if invoice.PaidAt == nil {
			paidAt := payment.ProcessedAt
			invoice.PaidAt = &paidAt
		}
	}
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, 0, err
	}

	overage := overageAfter - overageBefore
	if overage > 0 {
		entry := &domain.LedgerEntry{
			OwnerID:     invoice.OwnerID,
			CustomerID:  &invoice.CustomerID,
			RentalID:    &invoice.RentalID,
			PaymentID:   &payment.ID,
			Type:        domain.EntryTypeAdjustment,
			Category:    domain.CategoryOverpayment,
			Description: fmt.Sprintf("Overpayment on invoice %s from payment %s", invoice.InvoiceNumber, payment.ID),
			AmountCents: overage,
			EntryDate:   utils.DateOnly(payment.ProcessedAt),
		}
		if err := s.ledgerSvc.Record(ctx, entry); err != nil {
			return nil, 0, err
		}
	}
	return invoice, overage, nil
}

func (s *paymentService) ApplyRefund(ctx context.Context, ownerID int64, paymentID string, processedAt time.Time) (*ApplyResult, error) {
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}
	var result *ApplyResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		payment, err := s.paymentRepo.GetByID(ctx, ownerID, paymentID)
		if err != nil {
			return err
		}
		if payment.Status == domain.PaymentStatusRefunded {
			invoice, err := s.invoiceRepo.GetByID(ctx, ownerID, payment.InvoiceID)
			if err != nil {
				return err
			}
			result = &ApplyResult{Invoice: invoice, Payment: payment, Duplicate: true}
			return nil
		}
		if err := payment.Transition(domain.PaymentStatusRefunded); err != nil {
			return err
		}
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			return err
		}

		invoice, err := s.invoiceRepo.GetByID(ctx, ownerID, payment.InvoiceID)
		if err != nil {
			return err
		}
		invoice.AmountPaidCents = max(0, invoice.AmountPaidCents-payment.AmountCents)
		if invoice.Status == domain.InvoiceStatusPaid && invoice.AmountPaidCents < invoice.AmountDueCents {
			// Refunds reopen the invoice; paid_at stays as the record of the
			// first full payment.
			if err := invoice.Transition(domain.InvoiceStatusSent); err != nil {
				return err
			}
		}
		if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
			return err
		}

		entry := &domain.LedgerEntry{
			OwnerID:     invoice.OwnerID,
			CustomerID:  &invoice.CustomerID,
			RentalID:    &invoice.RentalID,
			PaymentID:   &payment.ID,
			Type:        domain.EntryTypeAdjustment,
			Category:    domain.CategoryRefund,
			Description: fmt.Sprintf("Refund of payment %s on invoice %s", payment.ID, invoice.InvoiceNumber),
			AmountCents: payment.AmountCents,
			EntryDate:   utils.DateOnly(processedAt),
		}
		if err := s.ledgerSvc.Record(ctx, entry); err != nil {
			return err
		}
		result = &ApplyResult{Invoice: invoice, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *paymentService) Record(ctx context.Context, payment *domain.Payment) error {
	if err := payment.Validate(); err != nil {
		return err
	}
	switch payment.Status {
	case domain.PaymentStatusPending, domain.PaymentStatusFailed:
	default:
		return domain.NewValidationError("status", "only pending or failed payments are recorded without application")
	}
	if payment.ProcessedAt.IsZero() {
		payment.ProcessedAt = time.Now().UTC()
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		err := s.paymentRepo.Create(ctx, payment)
		var dup *domain.DuplicatePaymentError
		if !errors.As(err, &dup) {
			return err
		}
		existing, err := s.paymentRepo.GetByID(ctx, payment.OwnerID, payment.ID)
		if err != nil {
			return err
		}
		// A FAILED event settles a payment previously stored as PENDING;
		// any other re-delivery is a no-op.
		if payment.Status == domain.PaymentStatusFailed && existing.Status == domain.PaymentStatusPending {
			if err := existing.Transition(domain.PaymentStatusFailed); err != nil {
				return err
			}
			existing.ProcessedAt = payment.ProcessedAt
			return s.paymentRepo.Update(ctx, existing)
		}
		return nil
	})
}

func (s *paymentService) ListByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.Payment, error) {
	return s.paymentRepo.ListByOwner(ctx, ownerID, from, to)
}
