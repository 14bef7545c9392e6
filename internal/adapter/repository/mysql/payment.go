package mysql

import (
	"context"
	"time"

	"p2p-lending/internal/domain/loan"
	paymentDomain "p2p-lending/internal/domain/payment"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) CreateBatch(ctx context.Context, ps []paymentDomain.Payment) error {
	if len(ps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ps).Error
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&out)
	return &out, notFound(res.Error, paymentDomain.ErrNotFound)
}

func (r *PaymentRepository) GetByPaymentIDForUpdate(ctx context.Context, paymentID string) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_id = ?", paymentID).
		First(&out)
	return &out, notFound(res.Error, paymentDomain.ErrNotFound)
}

func (r *PaymentRepository) ListByLoan(ctx context.Context, loanID uint64) ([]paymentDomain.Payment, error) {
	var out []paymentDomain.Payment
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Order("seq").Find(&out)
	return out, res.Error
}

func (r *PaymentRepository) ListUnpaidDue(ctx context.Context, asOf time.Time) ([]paymentDomain.Payment, error) {
	var out []paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Joins("JOIN loans ON loans.id = payments.loan_id AND loans.deleted_at IS NULL").
		Where("payments.paid = ? AND payments.due_date <= ? AND loans.status = ?", false, asOf, loan.StatusFunded).
		Order("payments.due_date, payments.id").
		Find(&out)
	return out, res.Error
}

func (r *PaymentRepository) CountUnpaid(ctx context.Context, loanID uint64) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).Model(&paymentDomain.Payment{}).
		Where("loan_id = ? AND paid = ?", loanID, false).
		Count(&n)
	return n, res.Error
}

func (r *PaymentRepository) CountOverdue(ctx context.Context, loanID uint64, cutoff time.Time) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).Model(&paymentDomain.Payment{}).
		Where("loan_id = ? AND paid = ? AND due_date <= ?", loanID, false, cutoff).
		Count(&n)
	return n, res.Error
}

func (r *PaymentRepository) MarkPaid(ctx context.Context, p *paymentDomain.Payment, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&paymentDomain.Payment{}).
		Where("id = ? AND paid = ?", p.ID, false).
		Updates(map[string]any{"paid": true, "paid_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return paymentDomain.ErrAlreadyPaid
	}
	p.Paid = true
	p.PaidAt = &at
	return nil
}

func (r *PaymentRepository) ApplyLateFee(ctx context.Context, p *paymentDomain.Payment, fee decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&paymentDomain.Payment{}).
		Where("id = ? AND paid = ? AND late_fee_applied = ?", p.ID, false, false).
		Updates(map[string]any{"late_fee": fee, "late_fee_applied": true})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	p.LateFee = fee
	p.LateFeeApplied = true
	return true, nil
}
