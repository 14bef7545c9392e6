package payment

import "p2p-lending/internal/domain/errs"

var (
	ErrNotFound    = errs.New(errs.KindNotFound, "payment not found")
	ErrAlreadyPaid = errs.New(errs.KindIllegalTransition, "payment already paid")
	ErrLoanNotDue  = errs.New(errs.KindIllegalTransition, "loan is not funded")
)
