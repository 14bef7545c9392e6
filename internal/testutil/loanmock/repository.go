package loanmock

import (
	"context"
	"time"

	domain "p2p-lending/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Writes default to no-op success; reads default to context.Canceled.
type Repo struct {
	CreateFn                func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn           func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn  func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByIDFn               func(ctx context.Context, id uint64) (*domain.Loan, error)
	GetByIDForUpdateFn      func(ctx context.Context, id uint64) (*domain.Loan, error)
	SaveFn                  func(ctx context.Context, l *domain.Loan) error
	SaveTransitionFn        func(ctx context.Context, l *domain.Loan, from domain.Status) error
	ListAvailableFn         func(ctx context.Context, limit int) ([]domain.Loan, error)
	ListByStatusFn          func(ctx context.Context, status domain.Status) ([]domain.Loan, error)
	ListDefaultCandidatesFn func(ctx context.Context, cutoff time.Time, minOverdue int) ([]domain.Loan, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) SaveTransition(ctx context.Context, l *domain.Loan, from domain.Status) error {
	if m.SaveTransitionFn != nil {
		return m.SaveTransitionFn(ctx, l, from)
	}
	return nil
}

func (m *Repo) ListAvailable(ctx context.Context, limit int) ([]domain.Loan, error) {
	if m.ListAvailableFn != nil {
		return m.ListAvailableFn(ctx, limit)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Loan, error) {
	if m.ListByStatusFn != nil {
		return m.ListByStatusFn(ctx, status)
	}
	return nil, context.Canceled
}

func (m *Repo) ListDefaultCandidates(ctx context.Context, cutoff time.Time, minOverdue int) ([]domain.Loan, error) {
	if m.ListDefaultCandidatesFn != nil {
		return m.ListDefaultCandidatesFn(ctx, cutoff, minOverdue)
	}
	return nil, context.Canceled
}
