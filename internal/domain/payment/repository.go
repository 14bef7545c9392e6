package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateBatch(ctx context.Context, ps []Payment) error
	GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	GetByPaymentIDForUpdate(ctx context.Context, paymentID string) (*Payment, error)
	ListByLoan(ctx context.Context, loanID uint64) ([]Payment, error)
	// ListUnpaidDue returns unpaid payments of FUNDED loans due on or before asOf.
	ListUnpaidDue(ctx context.Context, asOf time.Time) ([]Payment, error)
	CountUnpaid(ctx context.Context, loanID uint64) (int64, error)
	CountOverdue(ctx context.Context, loanID uint64, cutoff time.Time) (int64, error)
	// MarkPaid flips paid=false -> true; it returns ErrAlreadyPaid if the
	// row was settled concurrently.
	MarkPaid(ctx context.Context, p *Payment, at time.Time) error
	// ApplyLateFee sets the fee once; applied is false if it was already set.
	ApplyLateFee(ctx context.Context, p *Payment, fee decimal.Decimal) (applied bool, err error)
}
