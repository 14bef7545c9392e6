package offer

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Active offers hold a reservation and block the lender from bidding again.
func (s Status) Active() bool { return s == StatusPending || s == StatusAccepted }

// CanRetireAs reports whether a pending offer may end in the given status
// without being accepted.
func (s Status) CanRetireAs(to Status) bool {
	return s == StatusPending && (to == StatusRejected || to == StatusExpired)
}

// Table: offers
type Offer struct {
	ID             uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	OfferID        string          `gorm:"column:offer_id;size:32;not null;uniqueIndex:ux_offers_offer_id" json:"offer_id"`
	LoanID         uint64          `gorm:"column:loan_id;not null;index:idx_offers_loan_status" json:"-"`
	LenderID       string          `gorm:"column:lender_id;size:32;not null;index" json:"lender_id"`
	InterestRate   decimal.Decimal `gorm:"column:interest_rate;type:decimal(5,2);not null" json:"interest_rate"`
	ReservedAmount decimal.Decimal `gorm:"column:reserved_amount;type:decimal(12,2);not null" json:"reserved_amount"`
	Status         Status          `gorm:"column:status;size:16;not null;index:idx_offers_loan_status" json:"status"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Offer) TableName() string { return "offers" }

// Better reports whether o should be preferred over other: lowest rate
// first, then earliest creation.
func (o *Offer) Better(other *Offer) bool {
	if c := o.InterestRate.Cmp(other.InterestRate); c != 0 {
		return c < 0
	}
	if !o.CreatedAt.Equal(other.CreatedAt) {
		return o.CreatedAt.Before(other.CreatedAt)
	}
	return o.ID < other.ID
}
