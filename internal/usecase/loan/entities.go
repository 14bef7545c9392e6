package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateLoanInput struct {
	BorrowerID   string
	Amount       decimal.Decimal
	TermMonths   int
	InterestRate *decimal.Decimal // nil: rate settled by offers
}

type LoanDTO struct {
	LoanID          string           `json:"loan_id"`
	BorrowerID      string           `json:"borrower_id"`
	LenderID        *string          `json:"lender_id"`
	Amount          decimal.Decimal  `json:"amount"`
	TermMonths      int              `json:"term_months"`
	InterestRate    *decimal.Decimal `json:"interest_rate"`
	Fee             decimal.Decimal  `json:"fee"`
	Status          string           `json:"status"`
	Closed          bool             `json:"closed"`
	StatusUpdatedAt time.Time        `json:"status_updated_at"`
	FundedAt        *time.Time       `json:"funded_at"`
	CreatedAt       time.Time        `json:"created_at"`
}

// FundDTO is the funded loan plus the schedule it produced.
type FundDTO struct {
	LoanDTO
	Installment    decimal.Decimal `json:"installment"`
	Payments       int             `json:"payments"`
	FirstDueDate   string          `json:"first_due_date"`
	TotalRepayable decimal.Decimal `json:"total_repayable"`
}
