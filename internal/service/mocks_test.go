package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"selfstore-backend/internal/domain"
)

// passthroughTx runs the closure without a database.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// countingTx records how many transactions were opened.
type countingTx struct{ calls int }

func (c *countingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls++
	return fn(ctx)
}

// rerunTx invokes the closure twice and keeps the second result, the way a
// serialization retry re-runs it after a rollback.
type rerunTx struct{}

func (rerunTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	_ = fn(ctx)
	return fn(ctx)
}

type MockRentalRepo struct{ mock.Mock }

func (m *MockRentalRepo) Create(ctx context.Context, rental *domain.Rental) error {
	return m.Called(ctx, rental).Error(0)
}

func (m *MockRentalRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Rental, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

func (m *MockRentalRepo) Update(ctx context.Context, rental *domain.Rental) error {
	return m.Called(ctx, rental).Error(0)
}

func (m *MockRentalRepo) ListByOwner(ctx context.Context, ownerID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	args := m.Called(ctx, ownerID, status, page, pageSize)
	return args.Get(0).([]domain.Rental), args.Get(1).(int32), args.Error(2)
}

func (m *MockRentalRepo) ListActive(ctx context.Context, ownerID int64) ([]domain.Rental, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.Rental), args.Error(1)
}

func (m *MockRentalRepo) ListAllActive(ctx context.Context) ([]domain.Rental, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Rental), args.Error(1)
}

type MockInvoiceRepo struct{ mock.Mock }

func (m *MockInvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockInvoiceRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Invoice, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) GetByRentalAndPeriod(ctx context.Context, rentalID int64, periodStart time.Time) (*domain.Invoice, error) {
	args := m.Called(ctx, rentalID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) Update(ctx context.Context, invoice *domain.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockInvoiceRepo) ListByRental(ctx context.Context, rentalID int64) ([]domain.Invoice, error) {
	args := m.Called(ctx, rentalID)
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) ListByOwner(ctx context.Context, ownerID int64, status string, from, to time.Time) ([]domain.Invoice, error) {
	args := m.Called(ctx, ownerID, status, from, to)
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) ListUnpaidDue(ctx context.Context, ownerID int64, asOf time.Time) ([]domain.Invoice, error) {
	args := m.Called(ctx, ownerID, asOf)
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) ListOverdue(ctx context.Context) ([]domain.Invoice, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) LastPeriodEnd(ctx context.Context, rentalID int64) (time.Time, error) {
	args := m.Called(ctx, rentalID)
	return args.Get(0).(time.Time), args.Error(1)
}

type MockPaymentRepo struct{ mock.Mock }

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockPaymentRepo) GetByID(ctx context.Context, ownerID int64, id string) (*domain.Payment, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) Update(ctx context.Context, payment *domain.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockPaymentRepo) ListByInvoice(ctx context.Context, invoiceID int64) ([]domain.Payment, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) ListByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.Payment, error) {
	args := m.Called(ctx, ownerID, from, to)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) SumCompletedByInvoice(ctx context.Context, invoiceID int64) (int64, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(int64), args.Error(1)
}

type MockLedgerRepo struct{ mock.Mock }

func (m *MockLedgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLedgerRepo) ListByScope(ctx context.Context, ownerID int64, scope domain.LedgerScope, from, to time.Time) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, ownerID, scope, from, to)
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepo) BalanceByScope(ctx context.Context, ownerID int64, scope domain.LedgerScope) (int64, error) {
	args := m.Called(ctx, ownerID, scope)
	return args.Get(0).(int64), args.Error(1)
}

type MockEmailService struct{ mock.Mock }

func (m *MockEmailService) SendInvoiceIssuedNotice(ctx context.Context, invoice *domain.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockEmailService) SendOverdueNotice(ctx context.Context, invoice *domain.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockEmailService) SendOverdueDigest(ctx context.Context, invoices []domain.Invoice) error {
	return m.Called(ctx, invoices).Error(0)
}

type MockSignatureService struct{ mock.Mock }

func (m *MockSignatureService) ConfirmSignature(ctx context.Context, rental *domain.Rental) (bool, error) {
	args := m.Called(ctx, rental)
	return args.Bool(0), args.Error(1)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
