package offer

import "p2p-lending/internal/domain/errs"

var (
	ErrNotFound         = errs.New(errs.KindNotFound, "offer not found")
	ErrNoPendingOffers  = errs.New(errs.KindNotFound, "no pending offers found")
	ErrAlreadyActive    = errs.New(errs.KindIllegalTransition, "lender already has an active offer for this loan")
	ErrRateNotImproved  = errs.New(errs.KindIllegalTransition, "offer rate does not improve on the current rate")
	ErrOwnLoan          = errs.New(errs.KindIllegalTransition, "borrower cannot bid on own loan")
	ErrNotPending       = errs.New(errs.KindIllegalTransition, "offer is not pending")
	ErrLoanNotBiddable  = errs.New(errs.KindIllegalTransition, "loan not open for offers")
	ErrStaleOfferStatus = errs.New(errs.KindIllegalTransition, "offer status changed concurrently")
)
