package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table: payments. One row per scheduled installment.
type Payment struct {
	ID             uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	PaymentID      string          `gorm:"column:payment_id;size:32;not null;uniqueIndex:ux_payments_payment_id" json:"payment_id"`
	LoanID         uint64          `gorm:"column:loan_id;not null;uniqueIndex:ux_payments_loan_seq" json:"-"`
	Seq            int             `gorm:"column:seq;not null;uniqueIndex:ux_payments_loan_seq" json:"seq"`
	DueDate        time.Time       `gorm:"column:due_date;type:date;not null;index:idx_payments_due" json:"due_date"`
	Amount         decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	Paid           bool            `gorm:"column:paid;not null;default:false;index:idx_payments_due" json:"paid"`
	PaidAt         *time.Time      `gorm:"column:paid_at" json:"paid_at"`
	LateFee        decimal.Decimal `gorm:"column:late_fee;type:decimal(12,2);not null;default:0" json:"late_fee"`
	LateFeeApplied bool            `gorm:"column:late_fee_applied;not null;default:false" json:"late_fee_applied"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// AmountDue is the installment plus any late fee already applied.
func (p *Payment) AmountDue() decimal.Decimal {
	if !p.LateFeeApplied {
		return p.Amount
	}
	return p.Amount.Add(p.LateFee)
}

// DaysPastDue counts whole days between the due date and asOf's date.
func (p *Payment) DaysPastDue(asOf time.Time) int {
	d := int(Date(asOf).Sub(Date(p.DueDate)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// Date truncates t to midnight UTC, the granularity of due dates.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
