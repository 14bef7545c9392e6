package profile

import "p2p-lending/internal/domain/errs"

var (
	ErrNotFound          = errs.New(errs.KindNotFound, "profile not found")
	ErrInsufficientFunds = errs.New(errs.KindInsufficientFunds, "insufficient funds")
	ErrOverRelease       = errs.New(errs.KindUnexpected, "release exceeds reserved balance")
	ErrInvalidAmount     = errs.Invalid("amount must be positive with at most 2 decimal places", map[string]string{"amount": "must be > 0 with at most 2 decimal places"})
)
