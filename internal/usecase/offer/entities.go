package offer

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubmitInput struct {
	LoanID       string
	LenderID     string
	InterestRate decimal.Decimal
}

type AcceptInput struct {
	LoanID     string
	BorrowerID string
	OfferID    string // empty: best pending offer
}

type RejectInput struct {
	LoanID     string
	BorrowerID string
	OfferID    string
}

type OfferDTO struct {
	OfferID        string          `json:"offer_id"`
	LoanID         string          `json:"loan_id"`
	LenderID       string          `json:"lender_id"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	ReservedAmount decimal.Decimal `json:"reserved_amount"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// LoanStateDTO is the loan as the negotiation left it.
type LoanStateDTO struct {
	LoanID       string           `json:"loan_id"`
	Status       string           `json:"status"`
	LenderID     *string          `json:"lender_id"`
	InterestRate *decimal.Decimal `json:"interest_rate"`
}

type SubmitDTO struct {
	Offer OfferDTO     `json:"offer"`
	Loan  LoanStateDTO `json:"loan"`
}

type AcceptDTO struct {
	Offer    OfferDTO     `json:"offer"`
	Loan     LoanStateDTO `json:"loan"`
	Rejected int          `json:"rejected"`
}
