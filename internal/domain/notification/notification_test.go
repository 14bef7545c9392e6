package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPaymentOverdue_RendersTotals(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	in := Installment{
		Recipient: "b@example.com",
		LoanID:    "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		PaymentID: "pppppppppppppppppppppppppppppppp",
		Amount:    decimal.RequireFromString("88.85"),
		DueDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	m := PaymentOverdue(in, decimal.RequireFromString("10.00"), now)

	assert.Equal(t, EventPaymentOverdue, m.Event)
	assert.Equal(t, "Payment Overdue Notification", m.Subject)
	assert.True(t, strings.Contains(m.Body, "Total Amount Due: $98.85"), m.Body)
	assert.True(t, strings.Contains(m.Body, "Original Due Date: 2026-03-01"), m.Body)
	assert.Equal(t, "10", m.LateFee.String())
	assert.Equal(t, now, m.CreatedAt)
}

func TestPaymentProcessed_UsesPaidAt(t *testing.T) {
	paid := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	m := PaymentProcessed(Installment{LoanID: "L", Amount: decimal.NewFromInt(100), PaidAt: &paid}, time.Now())
	assert.Contains(t, m.Body, "Payment Date: 2026-01-02")
	assert.Contains(t, m.Body, "$100.00")
}

func TestPaymentDueAndFailed_Subjects(t *testing.T) {
	in := Installment{LoanID: "L", Amount: decimal.NewFromInt(5), DueDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "Payment Due Reminder", PaymentDue(in, time.Now()).Subject)
	assert.Equal(t, "Payment Processing Attempt", PaymentFailed(in, time.Now()).Subject)
}
