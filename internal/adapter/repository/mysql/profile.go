package mysql

import (
	"context"

	profileDomain "p2p-lending/internal/domain/profile"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) *ProfileRepository { return &ProfileRepository{db: db} }

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*profileDomain.Profile, error) {
	var out profileDomain.Profile
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out)
	return &out, notFound(res.Error, profileDomain.ErrNotFound)
}

func (r *ProfileRepository) GetOrCreateForUpdate(ctx context.Context, userID string) (*profileDomain.Profile, error) {
	// Insert-if-missing first so the locking read below always finds a row,
	// even when two transactions race to create the same profile.
	seed := &profileDomain.Profile{UserID: userID, Balance: decimal.Zero, ReservedBalance: decimal.Zero}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(seed).Error; err != nil {
		return nil, err
	}

	var out profileDomain.Profile
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&out)
	return &out, notFound(res.Error, profileDomain.ErrNotFound)
}

func (r *ProfileRepository) Save(ctx context.Context, p *profileDomain.Profile) error {
	return r.db.WithContext(ctx).Save(p).Error
}
