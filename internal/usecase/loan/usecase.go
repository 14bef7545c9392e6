package loan

import (
	"context"
	"fmt"
	"time"

	"p2p-lending/internal/domain/errs"
	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/offer"
	"p2p-lending/internal/domain/payment"
	"p2p-lending/internal/domain/uow"
	"p2p-lending/internal/usecase/ledger"
	"p2p-lending/internal/usecase/schedule"
	"p2p-lending/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Usecase struct {
	uow    uow.UnitOfWork
	repos  uow.Repos
	policy loan.Policy
	log    *zap.Logger
	now    func() time.Time
}

// NewUsecase: repos serve reads, tx wraps every transition.
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

func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*LoanDTO, error) {
	if err := u.validateCreate(in); err != nil {
		return nil, err
	}

	now := u.now()
	l := &loan.Loan{
		LoanID:          id.NewID32(),
		BorrowerID:      in.BorrowerID,
		Amount:          in.Amount,
		TermMonths:      in.TermMonths,
		InterestRate:    in.InterestRate,
		Fee:             u.policy.PlatformFee,
		Status:          loan.StatusDraft,
		StatusUpdatedAt: now,
	}
	if err := u.repos.Loans.Create(ctx, l); err != nil {
		return nil, err
	}
	u.log.Info("loan created", zap.String("loan_id", l.LoanID), zap.String("borrower_id", l.BorrowerID))
	return toDTO(l), nil
}

func (u *Usecase) validateCreate(in CreateLoanInput) error {
	fields := map[string]string{}
	if !id.Valid(in.BorrowerID) {
		fields["borrower_id"] = "must be a 32-character hex id"
	}
	switch {
	case !in.Amount.IsPositive():
		fields["amount"] = "must be greater than 0"
	case in.Amount.GreaterThan(u.policy.MaxAmount):
		fields["amount"] = "must be at most " + u.policy.MaxAmount.String()
	case !twoPlaces(in.Amount):
		fields["amount"] = "must have at most 2 decimal places"
	}
	if in.TermMonths < 1 || in.TermMonths > u.policy.MaxTermMonths {
		fields["term_months"] = fmt.Sprintf("must be between 1 and %d", u.policy.MaxTermMonths)
	}
	if r := in.InterestRate; r != nil {
		switch {
		case r.IsNegative() || r.GreaterThan(u.policy.MaxRate):
			fields["interest_rate"] = "must be between 0 and " + u.policy.MaxRate.String()
		case !twoPlaces(*r):
			fields["interest_rate"] = "must have at most 2 decimal places"
		}
	}
	if len(fields) > 0 {
		return errs.Invalid("invalid loan", fields)
	}
	return nil
}

// Get shows a loan to its borrower, its lender, and to anyone while it is
// still open for offers. Everyone else gets NotFound.
func (u *Usecase) Get(ctx context.Context, loanID, userID string) (*LoanDTO, error) {
	l, err := u.repos.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !l.IsBorrower(userID) && !l.IsLender(userID) && !l.Status.AwaitingLender() {
		return nil, loan.ErrNotFound
	}
	return toDTO(l), nil
}

// ListAvailable returns loans still waiting for a lender, newest first.
func (u *Usecase) ListAvailable(ctx context.Context, limit int) ([]LoanDTO, error) {
	ls, err := u.repos.Loans.ListAvailable(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LoanDTO, 0, len(ls))
	for i := range ls {
		out = append(out, *toDTO(&ls[i]))
	}
	return out, nil
}

// Open publishes a draft to lenders. Only the borrower may open it.
func (u *Usecase) Open(ctx context.Context, loanID, borrowerID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if !l.IsBorrower(borrowerID) {
			return loan.ErrNotFound
		}
		from := l.Status
		if err := l.Advance(loan.StatusOpen, u.now()); err != nil {
			return err
		}
		if err := r.Loans.SaveTransition(ctx, l, from); err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("loan opened", zap.String("loan_id", loanID))
	return dto, nil
}

// Fund moves the principal from the assigned lender to the borrower, takes
// the platform fee and materializes the repayment schedule, all in one unit.
func (u *Usecase) Fund(ctx context.Context, loanID, lenderID string) (*FundDTO, error) {
	var dto *FundDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if !l.IsLender(lenderID) {
			return loan.ErrNotFound
		}
		from := l.Status
		if err := l.Advance(loan.StatusFunded, u.now()); err != nil {
			return err
		}

		book := ledger.NewBook(r)
		if err := book.Lock(ctx, l.BorrowerID, lenderID); err != nil {
			return err
		}
		accepted, err := r.Offers.ListByLoan(ctx, l.ID, offer.StatusAccepted)
		if err != nil {
			return err
		}
		for _, o := range accepted {
			if o.LenderID != lenderID || !o.ReservedAmount.IsPositive() {
				continue
			}
			if err := book.Release(ctx, lenderID, o.ReservedAmount); err != nil {
				return err
			}
		}

		if _, err := book.Transfer(ctx, ledger.Entry{
			From: lenderID, To: l.BorrowerID, Amount: l.Amount,
			Note: "Loan funding " + l.LoanID, LoanID: &l.ID,
		}); err != nil {
			return err
		}
		if l.Fee.IsPositive() {
			if _, err := book.Transfer(ctx, ledger.Entry{
				From: lenderID, To: ledger.Platform, Amount: l.Fee,
				Note: "Platform fee " + l.LoanID, LoanID: &l.ID,
			}); err != nil {
				return err
			}
		}

		if err := r.Loans.SaveTransition(ctx, l, from); err != nil {
			return err
		}
		ps := schedule.Build(l, u.policy.ScheduleCadenceDays)
		if err := r.Payments.CreateBatch(ctx, ps); err != nil {
			return err
		}

		dto = &FundDTO{
			LoanDTO:        *toDTO(l),
			Payments:       len(ps),
			FirstDueDate:   schedule.FirstDue(*l.FundedAt, u.policy.ScheduleCadenceDays).Format("2006-01-02"),
			TotalRepayable: schedule.Total(ps),
		}
		if len(ps) > 0 {
			dto.Installment = ps[0].Amount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("loan funded",
		zap.String("loan_id", loanID),
		zap.String("lender_id", lenderID),
		zap.Int("payments", dto.Payments))
	return dto, nil
}

// Complete closes a FUNDED loan with nothing left to pay. It reports false
// when the loan does not qualify.
func (u *Usecase) Complete(ctx context.Context, loanID string) (bool, error) {
	done := false
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if l.Status != loan.StatusFunded {
			return nil
		}
		ps, err := r.Payments.ListByLoan(ctx, l.ID)
		if err != nil {
			return err
		}
		if len(ps) == 0 || !allPaid(ps) {
			return nil
		}
		if err := l.Advance(loan.StatusCompleted, u.now()); err != nil {
			return err
		}
		done = true
		return r.Loans.SaveTransition(ctx, l, loan.StatusFunded)
	})
	if err != nil {
		return false, err
	}
	if done {
		u.log.Info("loan completed", zap.String("loan_id", loanID))
	}
	return done, nil
}

// Default marks a FUNDED loan DEFAULTED once enough installments are
// severely overdue. It reports false when the loan does not qualify.
func (u *Usecase) Default(ctx context.Context, loanID string) (bool, error) {
	done := false
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if l.Status != loan.StatusFunded {
			return nil
		}
		now := u.now()
		n, err := r.Payments.CountOverdue(ctx, l.ID, u.DefaultCutoff(now))
		if err != nil {
			return err
		}
		if n < int64(u.policy.DefaultMinOverdue) {
			return nil
		}
		if err := l.Advance(loan.StatusDefaulted, now); err != nil {
			return err
		}
		done = true
		return r.Loans.SaveTransition(ctx, l, loan.StatusFunded)
	})
	if err != nil {
		return false, err
	}
	if done {
		u.log.Warn("loan defaulted", zap.String("loan_id", loanID))
	}
	return done, nil
}

// DefaultCutoff is the latest due date that counts as severely overdue.
func (u *Usecase) DefaultCutoff(now time.Time) time.Time {
	return payment.Date(now).AddDate(0, 0, -u.policy.DefaultAfterDays)
}

func (u *Usecase) Policy() loan.Policy { return u.policy }

func allPaid(ps []payment.Payment) bool {
	for _, p := range ps {
		if !p.Paid {
			return false
		}
	}
	return true
}

func twoPlaces(d decimal.Decimal) bool { return d.Equal(d.Truncate(2)) }

func toDTO(l *loan.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:          l.LoanID,
		BorrowerID:      l.BorrowerID,
		LenderID:        l.LenderID,
		Amount:          l.Amount,
		TermMonths:      l.TermMonths,
		InterestRate:    l.InterestRate,
		Fee:             l.Fee,
		Status:          string(l.Status),
		Closed:          l.Status.Terminal(),
		StatusUpdatedAt: l.StatusUpdatedAt,
		FundedAt:        l.FundedAt,
		CreatedAt:       l.CreatedAt,
	}
}
