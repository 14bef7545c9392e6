package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type AmountInput struct {
	UserID string
	Amount decimal.Decimal
}

type BalanceDTO struct {
	UserID          string          `json:"user_id"`
	Email           string          `json:"email,omitempty"`
	Balance         decimal.Decimal `json:"balance"`
	ReservedBalance decimal.Decimal `json:"reserved_balance"`
	Available       decimal.Decimal `json:"available"`
}

type TransactionDTO struct {
	TxID       string          `json:"tx_id"`
	FromUserID *string         `json:"from_user_id"`
	ToUserID   *string         `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
	CreatedAt  time.Time       `json:"created_at"`
}
