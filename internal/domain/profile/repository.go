package profile

import "context"

type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*Profile, error)
	// GetOrCreateForUpdate returns the locked profile, inserting an empty
	// one first if the user has none.
	GetOrCreateForUpdate(ctx context.Context, userID string) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
}
