package offermock

import (
	"context"
	"time"

	domain "p2p-lending/internal/domain/offer"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn                   func(ctx context.Context, o *domain.Offer) error
	GetByOfferIDFn             func(ctx context.Context, loanID uint64, offerID string) (*domain.Offer, error)
	ListByLoanFn               func(ctx context.Context, loanID uint64, statuses ...domain.Status) ([]domain.Offer, error)
	FindActiveByLenderFn       func(ctx context.Context, loanID uint64, lenderID string) (*domain.Offer, error)
	SaveStatusFn               func(ctx context.Context, o *domain.Offer, from domain.Status) error
	ListPendingCreatedBeforeFn func(ctx context.Context, cutoff time.Time) ([]domain.Offer, error)
}

func (m *Repo) Create(ctx context.Context, o *domain.Offer) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, o)
	}
	return nil
}

func (m *Repo) GetByOfferID(ctx context.Context, loanID uint64, offerID string) (*domain.Offer, error) {
	if m.GetByOfferIDFn != nil {
		return m.GetByOfferIDFn(ctx, loanID, offerID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) ListByLoan(ctx context.Context, loanID uint64, statuses ...domain.Status) ([]domain.Offer, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loanID, statuses...)
	}
	return nil, nil
}

func (m *Repo) FindActiveByLender(ctx context.Context, loanID uint64, lenderID string) (*domain.Offer, error) {
	if m.FindActiveByLenderFn != nil {
		return m.FindActiveByLenderFn(ctx, loanID, lenderID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) SaveStatus(ctx context.Context, o *domain.Offer, from domain.Status) error {
	if m.SaveStatusFn != nil {
		return m.SaveStatusFn(ctx, o, from)
	}
	return nil
}

func (m *Repo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Offer, error) {
	if m.ListPendingCreatedBeforeFn != nil {
		return m.ListPendingCreatedBeforeFn(ctx, cutoff)
	}
	return nil, nil
}
