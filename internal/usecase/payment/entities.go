package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayInput struct {
	LoanID     string
	PaymentID  string
	BorrowerID string
}

type PaymentDTO struct {
	PaymentID      string          `json:"payment_id"`
	LoanID         string          `json:"loan_id"`
	Seq            int             `json:"seq"`
	DueDate        string          `json:"due_date"`
	Amount         decimal.Decimal `json:"amount"`
	LateFee        decimal.Decimal `json:"late_fee"`
	LateFeeApplied bool            `json:"late_fee_applied"`
	Paid           bool            `json:"paid"`
	PaidAt         *time.Time      `json:"paid_at"`
	DaysPastDue    int             `json:"days_past_due"`
}

// SettleDTO is a settled installment and the loan status it left behind.
type SettleDTO struct {
	Payment    PaymentDTO      `json:"payment"`
	Charged    decimal.Decimal `json:"charged"`
	LoanStatus string          `json:"loan_status"`
}

// CollectResult mirrors what a manual collection attempt reports.
type CollectResult struct {
	PaymentID string `json:"payment_id"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
}

const (
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonNotFound            = "not_found"
	ReasonAlreadyPaid         = "already_paid"
	ReasonLoanNotFunded       = "loan_not_funded"
	ReasonError               = "error"
)
