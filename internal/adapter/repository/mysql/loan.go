package mysql

import (
	"context"
	"errors"
	"time"

	loanDomain "p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/payment"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, notFound(res.Error, loanDomain.ErrNotFound)
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	return &out, notFound(res.Error, loanDomain.ErrNotFound)
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&out)
	return &out, notFound(res.Error, loanDomain.ErrNotFound)
}

func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out)
	return &out, notFound(res.Error, loanDomain.ErrNotFound)
}

// SaveTransition is the status compare-and-swap: the UPDATE only matches
// while the stored status is still from.
func (r *LoanRepository) SaveTransition(ctx context.Context, l *loanDomain.Loan, from loanDomain.Status) error {
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("id = ? AND status = ?", l.ID, from).
		Updates(map[string]any{
			"status":            l.Status,
			"status_updated_at": l.StatusUpdatedAt,
			"lender_id":         l.LenderID,
			"interest_rate":     l.InterestRate,
			"funded_at":         l.FundedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return loanDomain.ErrStaleStatus
	}
	return nil
}

func (r *LoanRepository) ListAvailable(ctx context.Context, limit int) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	q := r.db.WithContext(ctx).
		Where("lender_id IS NULL AND status IN ?", []loanDomain.Status{loanDomain.StatusOpen, loanDomain.StatusOffered}).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}

func (r *LoanRepository) ListByStatus(ctx context.Context, status loanDomain.Status) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).Where("status = ?", status).Order("id").Find(&out)
	return out, res.Error
}

func (r *LoanRepository) ListDefaultCandidates(ctx context.Context, cutoff time.Time, minOverdue int) ([]loanDomain.Loan, error) {
	overdue := r.db.Model(&payment.Payment{}).
		Select("loan_id").
		Where("paid = ? AND due_date <= ?", false, cutoff).
		Group("loan_id").
		Having("COUNT(*) >= ?", minOverdue)

	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("status = ? AND id IN (?)", loanDomain.StatusFunded, overdue).
		Order("id").
		Find(&out)
	return out, res.Error
}

// notFound maps gorm's sentinel to the domain one so callers never import gorm.
func notFound(err, domainErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErr
	}
	return err
}
