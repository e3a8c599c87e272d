package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"selfstore-backend/internal/domain"
)

func activeRental() *domain.Rental {
	return &domain.Rental{
		ID:               7,
		OwnerID:          1,
		FacilityID:       2,
		CustomerID:       3,
		UnitID:           4,
		StartDate:        date(2024, time.January, 1),
		MonthlyRateCents: 10000,
		Status:           domain.RentalStatusActive,
	}
}

func TestInvoiceService_GenerateForPeriod(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesInvoiceForPeriod", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(new(MockLedgerRepo)), NewRentalLocks())
		rental := activeRental()

		invoiceRepo.On("GetByRentalAndPeriod", ctx, int64(7), date(2024, time.January, 1)).
			Return(nil, domain.ErrNotFound).Once()
		invoiceRepo.On("Create", ctx, mock.MatchedBy(func(inv *domain.Invoice) bool {
			return inv.InvoiceNumber == "INV-7-202401" &&
				inv.AmountDueCents == 10000 &&
				inv.Status == domain.InvoiceStatusDraft &&
				inv.DueDate.Equal(date(2024, time.January, 1)) &&
				inv.PeriodEnd.Equal(date(2024, time.January, 31))
		})).Return(nil).Once()

		invoice, err := svc.GenerateForPeriod(ctx, rental, date(2024, time.January, 1), date(2024, time.January, 31))
		assert.NoError(t, err)
		assert.Equal(t, "INV-7-202401", invoice.InvoiceNumber)
		invoiceRepo.AssertExpectations(t)
	})

	t.Run("DuplicateGenerationIsNoOp", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(new(MockLedgerRepo)), NewRentalLocks())
		rental := activeRental()

		existing := &domain.Invoice{ID: 42, InvoiceNumber: "INV-7-202401", Status: domain.InvoiceStatusSent}
		invoiceRepo.On("GetByRentalAndPeriod", ctx, int64(7), date(2024, time.January, 1)).
			Return(existing, nil).Once()

		invoice, err := svc.GenerateForPeriod(ctx, rental, date(2024, time.January, 1), date(2024, time.January, 31))
		assert.NoError(t, err)
		assert.Equal(t, int64(42), invoice.ID)
		invoiceRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("ConcurrentCreateReReads", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(new(MockLedgerRepo)), NewRentalLocks())
		rental := activeRental()

		winner := &domain.Invoice{ID: 99, InvoiceNumber: "INV-7-202401"}
		invoiceRepo.On("GetByRentalAndPeriod", ctx, int64(7), date(2024, time.January, 1)).
			Return(nil, domain.ErrNotFound).Once()
		invoiceRepo.On("Create", ctx, mock.Anything).Return(domain.ErrConcurrencyConflict).Once()
		invoiceRepo.On("GetByRentalAndPeriod", ctx, int64(7), date(2024, time.January, 1)).
			Return(winner, nil).Once()

		invoice, err := svc.GenerateForPeriod(ctx, rental, date(2024, time.January, 1), date(2024, time.January, 31))
		assert.NoError(t, err)
		assert.Equal(t, int64(99), invoice.ID)
		invoiceRepo.AssertExpectations(t)
	})

	t.Run("AddsLateFeeForOpenInvoices", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(new(MockLedgerRepo)), NewRentalLocks())
		rental := activeRental()
		rental.LateFeeBps = 500

		// Unpaid since January; generating March charges two overdue periods.
		open := []domain.Invoice{{
			ID: 1, RentalID: 7, Status: domain.InvoiceStatusOverdue,
			DueDate: date(2024, time.January, 1), AmountDueCents: 10000,
		}}
		invoiceRepo.On("GetByRentalAndPeriod", ctx, int64(7), date(2024, time.March, 1)).
			Return(nil, domain.ErrNotFound).Once()
		invoiceRepo.On("ListByRental", ctx, int64(7)).Return(open, nil).Once()
		invoiceRepo.On("Create", ctx, mock.MatchedBy(func(inv *domain.Invoice) bool {
			return inv.AmountDueCents == 11000
		})).Return(nil).Once()

		invoice, err := svc.GenerateForPeriod(ctx, rental, date(2024, time.March, 1), date(2024, time.March, 31))
		assert.NoError(t, err)
		assert.Equal(t, int64(11000), invoice.AmountDueCents)
		invoiceRepo.AssertExpectations(t)
	})

	t.Run("RejectsInactiveRental", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(new(MockLedgerRepo)), NewRentalLocks())
		rental := activeRental()
		rental.Status = domain.RentalStatusTerminated

		_, err := svc.GenerateForPeriod(ctx, rental, date(2024, time.January, 1), date(2024, time.January, 31))
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestInvoiceService_GenerateFinal(t *testing.T) {
	ctx := context.Background()

	t.Run("ProratesUsedDays", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(new(MockLedgerRepo)), NewRentalLocks())
		rental := activeRental()
		rental.MonthlyRateCents = 31000

		invoiceRepo.On("GetByRentalAndPeriod", ctx, int64(7), date(2024, time.January, 1)).
			Return(nil, domain.ErrNotFound).Once()
		invoiceRepo.On("Create", ctx, mock.MatchedBy(func(inv *domain.Invoice) bool {
			return inv.InvoiceNumber == "INV-7-FINAL" &&
				inv.AmountDueCents == 15000 &&
				inv.PeriodEnd.Equal(date(2024, time.January, 15))
		})).Return(nil).Once()

		invoice, err := svc.GenerateFinal(ctx, rental,
			date(2024, time.January, 1), date(2024, time.January, 31), date(2024, time.January, 15))
		assert.NoError(t, err)
		assert.Equal(t, int64(15000), invoice.AmountDueCents)
		invoiceRepo.AssertExpectations(t)
	})

	t.Run("NothingOwedReturnsNil", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(new(MockLedgerRepo)), NewRentalLocks())
		rental := activeRental()

		invoiceRepo.On("GetByRentalAndPeriod", ctx, int64(7), date(2024, time.February, 1)).
			Return(nil, domain.ErrNotFound).Once()

		invoice, err := svc.GenerateFinal(ctx, rental,
			date(2024, time.February, 1), date(2024, time.February, 29), date(2024, time.January, 31))
		assert.NoError(t, err)
		assert.Nil(t, invoice)
		invoiceRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("SendRecordsAccrualEntry", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		ledgerRepo := new(MockLedgerRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(ledgerRepo), NewRentalLocks())

		invoice := &domain.Invoice{
			ID: 5, OwnerID: 1, CustomerID: 3, RentalID: 7,
			InvoiceNumber: "INV-7-202401", AmountDueCents: 10000,
			PeriodStart: date(2024, time.January, 1), PeriodEnd: date(2024, time.January, 31),
			Status: domain.InvoiceStatusDraft,
		}
		invoiceRepo.On("Update", ctx, invoice).Return(nil).Once()
		ledgerRepo.On("Append", ctx, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
			return e.Type == domain.EntryTypeIncome &&
				e.Category == domain.CategoryRent &&
				e.AmountCents == 10000 &&
				*e.RentalID == int64(7) &&
				e.PaymentID == nil
		})).Return(nil).Once()

		err := svc.Send(ctx, invoice)
		assert.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusSent, invoice.Status)
		invoiceRepo.AssertExpectations(t)
		ledgerRepo.AssertExpectations(t)
	})

	t.Run("FinalInvoiceAccruesAsProratedRent", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		ledgerRepo := new(MockLedgerRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(ledgerRepo), NewRentalLocks())

		invoice := &domain.Invoice{
			ID: 6, OwnerID: 1, CustomerID: 3, RentalID: 7,
			InvoiceNumber: "INV-7-FINAL", AmountDueCents: 5000,
			PeriodStart: date(2024, time.March, 1), PeriodEnd: date(2024, time.March, 10),
			Status: domain.InvoiceStatusDraft,
		}
		invoiceRepo.On("Update", ctx, invoice).Return(nil).Once()
		ledgerRepo.On("Append", ctx, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
			return e.Category == domain.CategoryProration && e.AmountCents == 5000
		})).Return(nil).Once()

		err := svc.Send(ctx, invoice)
		assert.NoError(t, err)
		ledgerRepo.AssertExpectations(t)
	})

	t.Run("AlreadySentIsRejected", func(t *testing.T) {
		svc := NewInvoiceService(passthroughTx{}, new(MockInvoiceRepo), NewLedgerService(new(MockLedgerRepo)), NewRentalLocks())
		invoice := &domain.Invoice{Status: domain.InvoiceStatusCancelled}

		err := svc.Send(context.Background(), invoice)
		var transitionErr *domain.InvalidStateTransitionError
		assert.ErrorAs(t, err, &transitionErr)
	})
}

func TestInvoiceService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("DraftCancelsWithoutLedgerEntry", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		ledgerRepo := new(MockLedgerRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(ledgerRepo), NewRentalLocks())

		invoice := &domain.Invoice{ID: 5, OwnerID: 1, CustomerID: 3, RentalID: 7, Status: domain.InvoiceStatusDraft, AmountDueCents: 10000}
		invoiceRepo.On("GetByID", ctx, int64(1), int64(5)).Return(invoice, nil).Twice()
		invoiceRepo.On("Update", ctx, invoice).Return(nil).Once()

		cancelled, err := svc.Cancel(ctx, 1, 5)
		assert.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusCancelled, cancelled.Status)
		ledgerRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("SentCancelReversesAccrual", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		ledgerRepo := new(MockLedgerRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(ledgerRepo), NewRentalLocks())

		invoice := &domain.Invoice{ID: 5, OwnerID: 1, CustomerID: 3, RentalID: 7, InvoiceNumber: "INV-7-202401", Status: domain.InvoiceStatusSent, AmountDueCents: 10000}
		invoiceRepo.On("GetByID", ctx, int64(1), int64(5)).Return(invoice, nil).Twice()
		invoiceRepo.On("Update", ctx, invoice).Return(nil).Once()
		ledgerRepo.On("Append", ctx, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
			return e.Type == domain.EntryTypeExpense &&
				e.Category == domain.CategoryCancellation &&
				e.AmountCents == 10000
		})).Return(nil).Once()

		cancelled, err := svc.Cancel(ctx, 1, 5)
		assert.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusCancelled, cancelled.Status)
		ledgerRepo.AssertExpectations(t)
	})

	t.Run("PaidInvoiceCannotBeCancelled", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		svc := NewInvoiceService(passthroughTx{}, invoiceRepo, NewLedgerService(new(MockLedgerRepo)), NewRentalLocks())

		invoice := &domain.Invoice{ID: 5, OwnerID: 1, Status: domain.InvoiceStatusPaid}
		invoiceRepo.On("GetByID", ctx, int64(1), int64(5)).Return(invoice, nil).Twice()

		_, err := svc.Cancel(ctx, 1, 5)
		var transitionErr *domain.InvalidStateTransitionError
		assert.ErrorAs(t, err, &transitionErr)
	})

	t.Run("StatusFlipAndReversalShareOneTransaction", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepo)
		ledgerRepo := new(MockLedgerRepo)
		tx := &countingTx{}
		svc := NewInvoiceService(tx, invoiceRepo, NewLedgerService(ledgerRepo), NewRentalLocks())

		invoice := &domain.Invoice{ID: 5, OwnerID: 1, CustomerID: 3, RentalID: 7, InvoiceNumber: "INV-7-202401", Status: domain.InvoiceStatusSent, AmountDueCents: 10000}
		invoiceRepo.On("GetByID", ctx, int64(1), int64(5)).Return(invoice, nil).Twice()
		invoiceRepo.On("Update", ctx, invoice).Return(nil).Once()
		ledgerRepo.On("Append", ctx, mock.Anything).Return(assert.AnError).Once()

		// A failed reversing entry must surface, and the status flip must sit
		// in the same transaction so the store rolls both back together.
		_, err := svc.Cancel(ctx, 1, 5)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, tx.calls)
		invoiceRepo.AssertExpectations(t)
	})
}
