package uow

import (
	"context"

	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/offer"
	"p2p-lending/internal/domain/payment"
	"p2p-lending/internal/domain/profile"
	"p2p-lending/internal/domain/transaction"
)

// Repos are bound to one database transaction.
type Repos struct {
	Loans        loan.Repository
	Offers       offer.Repository
	Payments     payment.Repository
	Profiles     profile.Repository
	Transactions transaction.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
