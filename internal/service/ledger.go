package service

import (
	"context"
	"time"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/repository"
)

type ledgerService struct {
	ledgerRepo repository.LedgerRepository
}

func NewLedgerService(ledgerRepo repository.LedgerRepository) LedgerService {
	return &ledgerService{ledgerRepo: ledgerRepo}
}

func (s *ledgerService) Record(ctx context.Context, entry *domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.EntryDate.IsZero() {
		entry.EntryDate = time.Now().UTC()
	}
	return s.ledgerRepo.Append(ctx, entry)
}

func (s *ledgerService) Reconcile(ctx context.Context, ownerID int64, scope domain.LedgerScope) (int64, error) {
	return s.ledgerRepo.BalanceByScope(ctx, ownerID, scope)
}

func (s *ledgerService) ListEntries(ctx context.Context, ownerID int64, scope domain.LedgerScope, from, to time.Time) ([]domain.LedgerEntry, error) {
	if to.IsZero() {
		// An open upper bound means "through today and beyond".
		to = time.Now().UTC().AddDate(100, 0, 0)
	}
	return s.ledgerRepo.ListByScope(ctx, ownerID, scope, from, to)
}
