package mysql

import (
	"context"
	"time"

	offerDomain "p2p-lending/internal/domain/offer"

	"gorm.io/gorm"
)

type OfferRepository struct{ db *gorm.DB }

func NewOfferRepository(db *gorm.DB) *OfferRepository { return &OfferRepository{db: db} }

// bestFirst is the implicit-selection order: lowest rate, then earliest.
const bestFirst = "interest_rate ASC, created_at ASC, id ASC"

func (r *OfferRepository) Create(ctx context.Context, o *offerDomain.Offer) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OfferRepository) GetByOfferID(ctx context.Context, loanID uint64, offerID string) (*offerDomain.Offer, error) {
	var out offerDomain.Offer
	res := r.db.WithContext(ctx).
		Where("offer_id = ? AND loan_id = ?", offerID, loanID).
		First(&out)
	return &out, notFound(res.Error, offerDomain.ErrNotFound)
}

func (r *OfferRepository) ListByLoan(ctx context.Context, loanID uint64, statuses ...offerDomain.Status) ([]offerDomain.Offer, error) {
	var out []offerDomain.Offer
	q := r.db.WithContext(ctx).Where("loan_id = ?", loanID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	return out, q.Order(bestFirst).Find(&out).Error
}

func (r *OfferRepository) FindActiveByLender(ctx context.Context, loanID uint64, lenderID string) (*offerDomain.Offer, error) {
	var out offerDomain.Offer
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND lender_id = ? AND status IN ?", loanID, lenderID,
			[]offerDomain.Status{offerDomain.StatusPending, offerDomain.StatusAccepted}).
		First(&out)
	return &out, notFound(res.Error, offerDomain.ErrNotFound)
}

func (r *OfferRepository) SaveStatus(ctx context.Context, o *offerDomain.Offer, from offerDomain.Status) error {
	res := r.db.WithContext(ctx).
		Model(&offerDomain.Offer{}).
		Where("id = ? AND status = ?", o.ID, from).
		Update("status", o.Status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return offerDomain.ErrStaleOfferStatus
	}
	return nil
}

func (r *OfferRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]offerDomain.Offer, error) {
	var out []offerDomain.Offer
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", offerDomain.StatusPending, cutoff).
		Order("created_at, id").
		Find(&out)
	return out, res.Error
}
