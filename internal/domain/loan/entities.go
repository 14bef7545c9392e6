package loan

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Loan struct {
	ID              uint64           `gorm:"primaryKey;column:id" json:"-"`
	LoanID          string           `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	BorrowerID      string           `gorm:"size:32;index:idx_loans_borrower;not null" json:"borrower_id"`
	LenderID        *string          `gorm:"size:32;index:idx_loans_lender" json:"lender_id"`
	Amount          decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"amount"`
	TermMonths      int              `gorm:"not null" json:"term_months"`
	InterestRate    *decimal.Decimal `gorm:"type:decimal(5,2)" json:"interest_rate"`
	Fee             decimal.Decimal  `gorm:"type:decimal(8,2);not null;default:0" json:"fee"`
	Status          Status           `gorm:"size:16;index:idx_loans_status;not null;default:DRAFT" json:"status"`
	StatusUpdatedAt time.Time        `json:"status_updated_at"`
	FundedAt        *time.Time       `json:"funded_at"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// TotalDue is what the lender parts with on funding.
func (l *Loan) TotalDue() decimal.Decimal { return l.Amount.Add(l.Fee) }

// Rate returns the APR, treating an absent rate as zero.
func (l *Loan) Rate() decimal.Decimal {
	if l.InterestRate == nil {
		return decimal.Zero
	}
	return *l.InterestRate
}

func (l *Loan) IsBorrower(userID string) bool { return l.BorrowerID == userID }

func (l *Loan) IsLender(userID string) bool { return l.LenderID != nil && *l.LenderID == userID }

// Advance moves the loan to next in memory, enforcing the transition table.
// FundedAt is stamped on the move to FUNDED and nowhere else.
func (l *Loan) Advance(next Status, now time.Time) error {
	if !l.Status.CanTransitionTo(next) {
		return illegal(l.Status, next)
	}
	l.Status = next
	l.StatusUpdatedAt = now
	if next == StatusFunded {
		t := now
		l.FundedAt = &t
	}
	return nil
}
