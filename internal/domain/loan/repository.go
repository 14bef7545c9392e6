package loan

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate locks the row until the surrounding tx ends.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
	// SaveTransition persists l only if its stored status is still from.
	// It returns ErrStaleStatus when the guard fails.
	SaveTransition(ctx context.Context, l *Loan, from Status) error
	ListAvailable(ctx context.Context, limit int) ([]Loan, error)
	ListByStatus(ctx context.Context, status Status) ([]Loan, error)
	// ListDefaultCandidates returns FUNDED loans with at least minOverdue
	// unpaid payments due on or before cutoff.
	ListDefaultCandidates(ctx context.Context, cutoff time.Time, minOverdue int) ([]Loan, error)
}
