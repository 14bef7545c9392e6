package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an append-only audit row for one balance movement. A nil
// party is the platform.
type Transaction struct {
	ID         uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	TxID       string          `gorm:"column:tx_id;size:32;not null;uniqueIndex:ux_transactions_tx_id" json:"tx_id"`
	FromUserID *string         `gorm:"column:from_user_id;size:32;index" json:"from_user_id"`
	ToUserID   *string         `gorm:"column:to_user_id;size:32;index" json:"to_user_id"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	Note       string          `gorm:"column:note;size:255" json:"note"`
	LoanID     *uint64         `gorm:"column:loan_id;index" json:"-"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }
