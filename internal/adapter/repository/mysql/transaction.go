package mysql

import (
	"context"

	txDomain "p2p-lending/internal/domain/transaction"

	"gorm.io/gorm"
)

// TransactionRepository is append-only: there is no update or delete.
type TransactionRepository struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *txDomain.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]txDomain.Transaction, error) {
	var out []txDomain.Transaction
	q := r.db.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}

func (r *TransactionRepository) ListByLoan(ctx context.Context, loanID uint64) ([]txDomain.Transaction, error) {
	var out []txDomain.Transaction
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Order("id").Find(&out)
	return out, res.Error
}
