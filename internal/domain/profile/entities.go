package profile

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table: profiles. One per user, created on first use.
type Profile struct {
	ID              uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	UserID          string          `gorm:"column:user_id;size:32;not null;uniqueIndex:ux_profiles_user_id" json:"user_id"`
	Email           string          `gorm:"column:email;size:255" json:"email,omitempty"`
	Balance         decimal.Decimal `gorm:"column:balance;type:decimal(12,2);not null;default:0" json:"balance"`
	ReservedBalance decimal.Decimal `gorm:"column:reserved_balance;type:decimal(12,2);not null;default:0" json:"reserved_balance"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// Available is the spendable part of the balance.
func (p *Profile) Available() decimal.Decimal { return p.Balance.Sub(p.ReservedBalance) }

func (p *Profile) HasSufficientFunds(amount decimal.Decimal) bool {
	return p.Available().GreaterThanOrEqual(amount)
}
