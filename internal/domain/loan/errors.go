package loan

import "p2p-lending/internal/domain/errs"

var (
	ErrNotFound          = errs.New(errs.KindNotFound, "loan not found")
	ErrInvalidTransition = errs.New(errs.KindIllegalTransition, "loan not in a state that allows this action")
	// ErrStaleStatus is returned when the compare-and-swap on status finds
	// that another unit of work moved the loan first.
	ErrStaleStatus = errs.New(errs.KindIllegalTransition, "loan status changed concurrently")
)
