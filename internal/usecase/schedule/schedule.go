// Package schedule computes amortized repayment plans.
package schedule

import (
	"time"

	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/payment"
	"p2p-lending/pkg/id"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// powPrecision bounds intermediate digits while compounding.
const powPrecision = 20

// Installment is the fixed monthly payment for principal at apr percent
// over n months, rounded half-even to cents. A zero rate splits evenly.
func Installment(principal, apr decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	months := decimal.NewFromInt(int64(n))
	r := apr.Div(hundred).Div(twelve)
	if !r.IsPositive() {
		return principal.Div(months).RoundBank(2)
	}

	growth := decimal.NewFromInt(1)
	base := r.Add(decimal.NewFromInt(1))
	for i := 0; i < n; i++ {
		growth = growth.Mul(base).Round(powPrecision)
	}
	denom := growth.Sub(decimal.NewFromInt(1))
	if denom.IsZero() {
		return principal.Div(months).RoundBank(2)
	}
	return principal.Mul(r).Mul(growth).Div(denom).RoundBank(2)
}

// Build materializes the n installments of a funded loan. Installment i is
// due cadenceDays*i days after the funding date.
func Build(l *loan.Loan, cadenceDays int) []payment.Payment {
	if l.FundedAt == nil {
		return nil
	}
	amount := Installment(l.Amount, l.Rate(), l.TermMonths)
	start := payment.Date(*l.FundedAt)

	out := make([]payment.Payment, 0, l.TermMonths)
	for i := 1; i <= l.TermMonths; i++ {
		out = append(out, payment.Payment{
			PaymentID: id.NewID32(),
			LoanID:    l.ID,
			Seq:       i,
			DueDate:   start.AddDate(0, 0, cadenceDays*i),
			Amount:    amount,
			LateFee:   decimal.Zero,
		})
	}
	return out
}

// Total is what the borrower repays over the whole schedule.
func Total(ps []payment.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range ps {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// FirstDue is the due date of the first installment for a loan funded at t.
func FirstDue(t time.Time, cadenceDays int) time.Time {
	return payment.Date(t).AddDate(0, 0, cadenceDays)
}
