package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Event string

const (
	EventPaymentProcessed Event = "payment_processed"
	EventPaymentDue       Event = "payment_due"
	EventPaymentFailed    Event = "payment_failed"
	EventPaymentOverdue   Event = "payment_overdue"
)

type Message struct {
	Event     Event           `json:"event"`
	Recipient string          `json:"recipient"`
	Subject   string          `json:"subject"`
	Body      string          `json:"body"`
	LoanID    string          `json:"loan_id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	LateFee   decimal.Decimal `json:"late_fee"`
	CreatedAt time.Time       `json:"created_at"`
}

// Dispatcher delivers messages fire-and-forget: implementations log their
// own failures and never report them to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, m Message)
}

// Installment is the payment context a message is rendered from.
type Installment struct {
	Recipient string
	LoanID    string
	PaymentID string
	Amount    decimal.Decimal
	DueDate   time.Time
	PaidAt    *time.Time
}

func PaymentProcessed(in Installment, now time.Time) Message {
	paidAt := now
	if in.PaidAt != nil {
		paidAt = *in.PaidAt
	}
	return in.message(EventPaymentProcessed, now, "Payment Processed Successfully",
		fmt.Sprintf("Your monthly payment of $%s for loan #%s has been automatically processed successfully.\n\nPayment Date: %s\nThank you for your timely payment!",
			in.Amount.StringFixed(2), in.LoanID, paidAt.Format("2006-01-02")))
}

func PaymentDue(in Installment, now time.Time) Message {
	return in.message(EventPaymentDue, now, "Payment Due Reminder",
		fmt.Sprintf("Friendly reminder: Your payment of $%s for loan #%s is due on %s.\n\nPlease ensure sufficient funds are available in your account for automatic processing.",
			in.Amount.StringFixed(2), in.LoanID, in.DueDate.Format("2006-01-02")))
}

func PaymentFailed(in Installment, now time.Time) Message {
	return in.message(EventPaymentFailed, now, "Payment Processing Attempt",
		fmt.Sprintf("We attempted to process your payment of $%s for loan #%s, but there were insufficient funds in your account.\n\nPlease add funds to your account to avoid late fees.",
			in.Amount.StringFixed(2), in.LoanID))
}

func PaymentOverdue(in Installment, lateFee decimal.Decimal, now time.Time) Message {
	m := in.message(EventPaymentOverdue, now, "Payment Overdue Notification",
		fmt.Sprintf("IMPORTANT: Your payment of $%s for loan #%s is overdue. A late fee of $%s has been applied.\n\nOriginal Due Date: %s\nLate Fee: $%s\nTotal Amount Due: $%s\n\nPlease make the payment immediately to avoid further penalties.",
			in.Amount.StringFixed(2), in.LoanID, lateFee.StringFixed(2), in.DueDate.Format("2006-01-02"),
			lateFee.StringFixed(2), in.Amount.Add(lateFee).StringFixed(2)))
	m.LateFee = lateFee
	return m
}

func (in Installment) message(ev Event, now time.Time, subject, body string) Message {
	return Message{
		Event:     ev,
		Recipient: in.Recipient,
		Subject:   subject,
		Body:      body,
		LoanID:    in.LoanID,
		PaymentID: in.PaymentID,
		Amount:    in.Amount,
		CreatedAt: now,
	}
}

// Discard drops every message.
type Discard struct{}

func (Discard) Dispatch(context.Context, Message) {}
