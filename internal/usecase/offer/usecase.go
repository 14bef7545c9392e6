package offer

import (
	"context"
	"errors"
	"time"

	"p2p-lending/internal/domain/errs"
	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/offer"
	"p2p-lending/internal/domain/uow"
	"p2p-lending/internal/usecase/ledger"
	"p2p-lending/pkg/id"

	"go.uber.org/zap"
)

type Usecase struct {
	uow    uow.UnitOfWork
	repos  uow.Repos
	policy loan.Policy
	log    *zap.Logger
	now    func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, repos uow.Repos, policy loan.Policy, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		uow:    tx,
		repos:  repos,
		policy: policy,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

// Submit places a lender's bid and reserves what funding will cost them.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (*SubmitDTO, error) {
	if err := u.validateSubmit(in); err != nil {
		return nil, err
	}

	var dto *SubmitDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if !l.Status.AwaitingLender() {
			return offer.ErrLoanNotBiddable
		}
		if l.IsBorrower(in.LenderID) {
			return offer.ErrOwnLoan
		}
		if _, err := r.Offers.FindActiveByLender(ctx, l.ID, in.LenderID); err == nil {
			return offer.ErrAlreadyActive
		} else if !errors.Is(err, offer.ErrNotFound) {
			return err
		}
		if l.Status == loan.StatusOffered && l.InterestRate != nil && !in.InterestRate.LessThan(*l.InterestRate) {
			return offer.ErrRateNotImproved
		}

		o := &offer.Offer{
			OfferID:        id.NewID32(),
			LoanID:         l.ID,
			LenderID:       in.LenderID,
			InterestRate:   in.InterestRate,
			ReservedAmount: l.TotalDue(),
			Status:         offer.StatusPending,
			CreatedAt:      u.now(),
		}
		if err := ledger.NewBook(r).Reserve(ctx, in.LenderID, o.ReservedAmount); err != nil {
			return err
		}
		if err := r.Offers.Create(ctx, o); err != nil {
			return err
		}

		from := l.Status
		if from == loan.StatusOpen {
			if err := l.Advance(loan.StatusOffered, u.now()); err != nil {
				return err
			}
		}
		if err := u.requote(ctx, r, l, from); err != nil {
			return err
		}

		dto = &SubmitDTO{Offer: toDTO(o, l.LoanID), Loan: loanState(l)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("offer submitted",
		zap.String("loan_id", in.LoanID),
		zap.String("offer_id", dto.Offer.OfferID),
		zap.String("rate", in.InterestRate.StringFixed(2)))
	return dto, nil
}

func (u *Usecase) validateSubmit(in SubmitInput) error {
	fields := map[string]string{}
	if !id.Valid(in.LenderID) {
		fields["lender_id"] = "must be a 32-character hex id"
	}
	r := in.InterestRate
	switch {
	case !r.IsPositive() || r.GreaterThan(u.policy.MaxRate):
		fields["interest_rate"] = "must be greater than 0 and at most " + u.policy.MaxRate.String()
	case !r.Equal(r.Truncate(2)):
		fields["interest_rate"] = "must have at most 2 decimal places"
	}
	if len(fields) > 0 {
		return errs.Invalid("invalid offer", fields)
	}
	return nil
}

// List returns every offer that was not rejected, best first.
func (u *Usecase) List(ctx context.Context, loanID string) ([]OfferDTO, error) {
	l, err := u.repos.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	os, err := u.repos.Offers.ListByLoan(ctx, l.ID, offer.StatusPending, offer.StatusAccepted, offer.StatusExpired)
	if err != nil {
		return nil, err
	}
	out := make([]OfferDTO, 0, len(os))
	for i := range os {
		out = append(out, toDTO(&os[i], l.LoanID))
	}
	return out, nil
}

// Accept binds the loan to one offer and rejects all others. The chosen
// offer keeps its reservation until funding.
func (u *Usecase) Accept(ctx context.Context, in AcceptInput) (*AcceptDTO, error) {
	var dto *AcceptDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if !l.IsBorrower(in.BorrowerID) {
			return loan.ErrNotFound
		}
		if l.Status != loan.StatusOffered {
			return loan.ErrInvalidTransition
		}
		pending, err := r.Offers.ListByLoan(ctx, l.ID, offer.StatusPending)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return offer.ErrNoPendingOffers
		}

		chosen, err := pick(ctx, r, l, pending, in.OfferID)
		if err != nil {
			return err
		}

		book := ledger.NewBook(r)
		if err := book.Lock(ctx, lenders(pending)...); err != nil {
			return err
		}
		chosen.Status = offer.StatusAccepted
		if err := r.Offers.SaveStatus(ctx, chosen, offer.StatusPending); err != nil {
			return err
		}
		rejected := 0
		for i := range pending {
			o := &pending[i]
			if o.ID == chosen.ID {
				continue
			}
			if err := retire(ctx, r, book, o, offer.StatusRejected); err != nil {
				return err
			}
			rejected++
		}

		lender := chosen.LenderID
		rate := chosen.InterestRate
		l.LenderID = &lender
		l.InterestRate = &rate
		if err := l.Advance(loan.StatusAccepted, u.now()); err != nil {
			return err
		}
		if err := r.Loans.SaveTransition(ctx, l, loan.StatusOffered); err != nil {
			return err
		}

		dto = &AcceptDTO{Offer: toDTO(chosen, l.LoanID), Loan: loanState(l), Rejected: rejected}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("offer accepted",
		zap.String("loan_id", in.LoanID),
		zap.String("offer_id", dto.Offer.OfferID),
		zap.Int("rejected", dto.Rejected))
	return dto, nil
}

// pick resolves the explicit offer, or the best pending one.
func pick(ctx context.Context, r uow.Repos, l *loan.Loan, pending []offer.Offer, offerID string) (*offer.Offer, error) {
	if offerID == "" {
		return &pending[0], nil
	}
	for i := range pending {
		if pending[i].OfferID == offerID {
			return &pending[i], nil
		}
	}
	// Distinguish unknown from already decided.
	if _, err := r.Offers.GetByOfferID(ctx, l.ID, offerID); err != nil {
		return nil, err
	}
	return nil, offer.ErrNotPending
}

// Reject declines one pending offer and frees exactly its reservation.
func (u *Usecase) Reject(ctx context.Context, in RejectInput) (*LoanStateDTO, error) {
	var dto *LoanStateDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if !l.IsBorrower(in.BorrowerID) {
			return loan.ErrNotFound
		}
		if !l.Status.AwaitingLender() {
			return loan.ErrInvalidTransition
		}
		o, err := r.Offers.GetByOfferID(ctx, l.ID, in.OfferID)
		if err != nil {
			return err
		}
		if o.Status != offer.StatusPending {
			return offer.ErrNotPending
		}
		if err := retire(ctx, r, ledger.NewBook(r), o, offer.StatusRejected); err != nil {
			return err
		}
		if err := u.requote(ctx, r, l, l.Status); err != nil {
			return err
		}
		s := loanState(l)
		dto = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("offer rejected", zap.String("loan_id", in.LoanID), zap.String("offer_id", in.OfferID))
	return dto, nil
}

// Reopen puts an OFFERED loan back to OPEN. Whether pending offers survive
// is a policy switch.
func (u *Usecase) Reopen(ctx context.Context, loanID, borrowerID string) (*LoanStateDTO, error) {
	var dto *LoanStateDTO
	expired := 0
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if !l.IsBorrower(borrowerID) {
			return loan.ErrNotFound
		}
		from := l.Status
		if err := l.Advance(loan.StatusOpen, u.now()); err != nil {
			return err
		}
		if u.policy.ReopenExpiresOffers {
			pending, err := r.Offers.ListByLoan(ctx, l.ID, offer.StatusPending)
			if err != nil {
				return err
			}
			book := ledger.NewBook(r)
			if err := book.Lock(ctx, lenders(pending)...); err != nil {
				return err
			}
			for i := range pending {
				if err := retire(ctx, r, book, &pending[i], offer.StatusExpired); err != nil {
					return err
				}
				expired++
			}
		}
		if err := u.requote(ctx, r, l, from); err != nil {
			return err
		}
		s := loanState(l)
		dto = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("loan reopened", zap.String("loan_id", loanID), zap.Int("expired_offers", expired))
	return dto, nil
}

// ExpireStale expires one offer if it is still pending and was created
// before cutoff. It reports whether anything changed.
func (u *Usecase) ExpireStale(ctx context.Context, o offer.Offer, cutoff time.Time) (bool, error) {
	expired := false
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByIDForUpdate(ctx, o.LoanID)
		if err != nil {
			return err
		}
		cur, err := r.Offers.GetByOfferID(ctx, l.ID, o.OfferID)
		if err != nil {
			return err
		}
		if cur.Status != offer.StatusPending || !cur.CreatedAt.Before(cutoff) {
			return nil
		}
		if err := retire(ctx, r, ledger.NewBook(r), cur, offer.StatusExpired); err != nil {
			return err
		}
		expired = true
		return u.requote(ctx, r, l, l.Status)
	})
	if err != nil {
		return false, err
	}
	if expired {
		u.log.Info("offer expired", zap.String("offer_id", o.OfferID))
	}
	return expired, nil
}

// StaleCutoff is the creation time before which pending offers expire.
// The zero time means expiry is disabled.
func (u *Usecase) StaleCutoff(now time.Time) time.Time {
	if u.policy.OfferTTL <= 0 {
		return time.Time{}
	}
	return now.Add(-u.policy.OfferTTL)
}

// retire ends a pending offer without accepting it and frees its
// reservation.
func retire(ctx context.Context, r uow.Repos, book *ledger.Book, o *offer.Offer, to offer.Status) error {
	if !o.Status.CanRetireAs(to) {
		return offer.ErrNotPending
	}
	from := o.Status
	o.Status = to
	if err := r.Offers.SaveStatus(ctx, o, from); err != nil {
		return err
	}
	if !o.ReservedAmount.IsPositive() {
		return nil
	}
	return book.Release(ctx, o.LenderID, o.ReservedAmount)
}

// requote keeps the loan's quoted rate equal to the best pending rate and
// drops an OFFERED loan back to OPEN once nothing is pending. The rate is
// left alone when no offer is pending. The loan is persisted guarded on from.
func (u *Usecase) requote(ctx context.Context, r uow.Repos, l *loan.Loan, from loan.Status) error {
	pending, err := r.Offers.ListByLoan(ctx, l.ID, offer.StatusPending)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		if l.Status == loan.StatusOffered {
			if err := l.Advance(loan.StatusOpen, u.now()); err != nil {
				return err
			}
		}
	} else {
		best := pending[0].InterestRate
		l.InterestRate = &best
	}
	return r.Loans.SaveTransition(ctx, l, from)
}

func lenders(offers []offer.Offer) []string {
	out := make([]string, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.LenderID)
	}
	return out
}

func loanState(l *loan.Loan) LoanStateDTO {
	return LoanStateDTO{
		LoanID:       l.LoanID,
		Status:       string(l.Status),
		LenderID:     l.LenderID,
		InterestRate: l.InterestRate,
	}
}

func toDTO(o *offer.Offer, loanID string) OfferDTO {
	return OfferDTO{
		OfferID:        o.OfferID,
		LoanID:         loanID,
		LenderID:       o.LenderID,
		InterestRate:   o.InterestRate,
		ReservedAmount: o.ReservedAmount,
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt,
	}
}
