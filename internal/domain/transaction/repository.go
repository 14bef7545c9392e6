package transaction

import "context"

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Transaction, error)
	ListByLoan(ctx context.Context, loanID uint64) ([]Transaction, error)
}
