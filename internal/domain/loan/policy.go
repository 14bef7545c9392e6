package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy holds the marketplace business constants.
type Policy struct {
	PlatformFee decimal.Decimal

	MaxAmount     decimal.Decimal
	MaxTermMonths int
	MaxRate       decimal.Decimal

	// Installments are due every ScheduleCadenceDays after funding.
	ScheduleCadenceDays int

	OverdueAfterDays  int
	LateFeeRate       decimal.Decimal
	LateFeeMin        decimal.Decimal
	DefaultAfterDays  int
	DefaultMinOverdue int

	// OfferTTL <= 0 disables offer expiry.
	OfferTTL            time.Duration
	ReopenExpiresOffers bool
}

func DefaultPolicy() Policy {
	return Policy{
		PlatformFee:         decimal.RequireFromString("3.75"),
		MaxAmount:           decimal.NewFromInt(1_000_000),
		MaxTermMonths:       360,
		MaxRate:             decimal.NewFromInt(50),
		ScheduleCadenceDays: 30,
		OverdueAfterDays:    7,
		LateFeeRate:         decimal.RequireFromString("0.05"),
		LateFeeMin:          decimal.RequireFromString("10.00"),
		DefaultAfterDays:    30,
		DefaultMinOverdue:   2,
		OfferTTL:            72 * time.Hour,
	}
}

// LateFee is max(rate * amount, minimum), rounded to cents.
func (p Policy) LateFee(amount decimal.Decimal) decimal.Decimal {
	fee := amount.Mul(p.LateFeeRate).RoundBank(2)
	if fee.LessThan(p.LateFeeMin) {
		return p.LateFeeMin
	}
	return fee
}
