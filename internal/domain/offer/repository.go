package offer

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, o *Offer) error
	GetByOfferID(ctx context.Context, loanID uint64, offerID string) (*Offer, error)
	// ListByLoan returns offers for the loan in best-first order, optionally
	// restricted to the given statuses.
	ListByLoan(ctx context.Context, loanID uint64, statuses ...Status) ([]Offer, error)
	FindActiveByLender(ctx context.Context, loanID uint64, lenderID string) (*Offer, error)
	// SaveStatus persists o only if its stored status is still from.
	SaveStatus(ctx context.Context, o *Offer, from Status) error
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]Offer, error)
}
