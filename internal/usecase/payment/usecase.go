package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"p2p-lending/internal/domain/errs"
	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/notification"
	"p2p-lending/internal/domain/payment"
	"p2p-lending/internal/domain/uow"
	"p2p-lending/internal/usecase/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Usecase struct {
	uow    uow.UnitOfWork
	repos  uow.Repos
	policy loan.Policy
	notify notification.Dispatcher
	log    *zap.Logger
	now    func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, repos uow.Repos, policy loan.Policy, notify notification.Dispatcher, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	if notify == nil {
		notify = notification.Discard{}
	}
	return &Usecase{
		uow:    tx,
		repos:  repos,
		policy: policy,
		notify: notify,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

// Schedule lists a loan's installments for its borrower or lender.
func (u *Usecase) Schedule(ctx context.Context, loanID, userID string) ([]PaymentDTO, error) {
	l, err := u.repos.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !l.IsBorrower(userID) && !l.IsLender(userID) {
		return nil, loan.ErrNotFound
	}
	ps, err := u.repos.Payments.ListByLoan(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	now := u.now()
	out := make([]PaymentDTO, 0, len(ps))
	for i := range ps {
		out = append(out, toDTO(&ps[i], l.LoanID, now))
	}
	return out, nil
}

// Pay settles one installment on the borrower's request.
func (u *Usecase) Pay(ctx context.Context, in PayInput) (*SettleDTO, error) {
	var dto *SettleDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if !l.IsBorrower(in.BorrowerID) {
			return loan.ErrNotFound
		}
		var err error
		dto, err = u.settle(ctx, r, l, in.PaymentID, "Payment")
		return err
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("payment settled",
		zap.String("loan_id", in.LoanID),
		zap.String("payment_id", in.PaymentID),
		zap.String("charged", dto.Charged.StringFixed(2)))
	return dto, nil
}

// Collect settles one due installment without a borrower request. Callers
// decide how to notify.
func (u *Usecase) Collect(ctx context.Context, paymentID, note string) (*SettleDTO, error) {
	var dto *SettleDTO
	err := u.withPaymentLoan(ctx, paymentID, func(r uow.Repos, l *loan.Loan) error {
		var err error
		dto, err = u.settle(ctx, r, l, paymentID, note)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// AutoCollect is one step of the collection sweep: success sends a
// confirmation, a short balance sends a due reminder.
func (u *Usecase) AutoCollect(ctx context.Context, paymentID string) (*SettleDTO, error) {
	dto, err := u.Collect(ctx, paymentID, "Automatic monthly payment")
	switch {
	case err == nil:
		u.dispatch(ctx, paymentID, notification.PaymentProcessed)
	case errors.Is(err, errs.ErrInsufficientFunds):
		u.dispatch(ctx, paymentID, notification.PaymentDue)
	}
	return dto, err
}

// Retry is a manual collection attempt for a single installment. It never
// fails; the outcome is in the result.
func (u *Usecase) Retry(ctx context.Context, paymentID string) CollectResult {
	res := CollectResult{PaymentID: paymentID}
	_, err := u.Collect(ctx, paymentID, "Manual retry payment")
	switch {
	case err == nil:
		res.Success = true
		u.dispatch(ctx, paymentID, notification.PaymentProcessed)
	case errors.Is(err, errs.ErrInsufficientFunds):
		res.Reason = ReasonInsufficientBalance
		u.dispatch(ctx, paymentID, notification.PaymentFailed)
	case errors.Is(err, payment.ErrAlreadyPaid):
		res.Reason = ReasonAlreadyPaid
	case errors.Is(err, payment.ErrLoanNotDue):
		res.Reason = ReasonLoanNotFunded
	case errors.Is(err, errs.ErrNotFound):
		res.Reason = ReasonNotFound
	default:
		res.Reason = ReasonError
		u.log.Error("payment retry failed", zap.String("payment_id", paymentID), zap.Error(err))
	}
	return res
}

// FlagOverdue charges the late fee on an installment past the grace
// period. It reports whether the fee was newly applied; the overdue notice
// goes out only then.
func (u *Usecase) FlagOverdue(ctx context.Context, paymentID string) (bool, error) {
	applied := false
	var fee decimal.Decimal
	err := u.withPaymentLoan(ctx, paymentID, func(r uow.Repos, l *loan.Loan) error {
		if l.Status != loan.StatusFunded {
			return nil
		}
		p, err := r.Payments.GetByPaymentIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Paid || p.LateFeeApplied || p.DueDate.After(u.OverdueCutoff(u.now())) {
			return nil
		}
		fee = u.policy.LateFee(p.Amount)
		applied, err = r.Payments.ApplyLateFee(ctx, p, fee)
		return err
	})
	if err != nil {
		return false, err
	}
	if applied {
		u.log.Info("late fee applied", zap.String("payment_id", paymentID), zap.String("fee", fee.StringFixed(2)))
		u.dispatch(ctx, paymentID, func(in notification.Installment, now time.Time) notification.Message {
			return notification.PaymentOverdue(in, fee, now)
		})
	}
	return applied, nil
}

// OverdueCutoff is the latest due date that counts as overdue at now.
func (u *Usecase) OverdueCutoff(now time.Time) time.Time {
	return payment.Date(now).AddDate(0, 0, -u.policy.OverdueAfterDays)
}

// withPaymentLoan locks the installment's loan before fn runs, keeping the
// loan-first lock order.
func (u *Usecase) withPaymentLoan(ctx context.Context, paymentID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	p, err := u.repos.Payments.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByIDForUpdate(ctx, p.LoanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

// settle is the one settlement routine behind manual pay and collection.
// The loan is already locked.
func (u *Usecase) settle(ctx context.Context, r uow.Repos, l *loan.Loan, paymentID, note string) (*SettleDTO, error) {
	if l.Status != loan.StatusFunded || l.LenderID == nil {
		return nil, payment.ErrLoanNotDue
	}
	p, err := r.Payments.GetByPaymentIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.LoanID != l.ID {
		return nil, payment.ErrNotFound
	}
	if p.Paid {
		return nil, payment.ErrAlreadyPaid
	}

	lender := *l.LenderID
	book := ledger.NewBook(r)
	if err := book.Lock(ctx, l.BorrowerID, lender); err != nil {
		return nil, err
	}
	if _, err := book.Transfer(ctx, ledger.Entry{
		From: l.BorrowerID, To: lender, Amount: p.Amount,
		Note: fmt.Sprintf("%s %d for loan %s", note, p.Seq, l.LoanID), LoanID: &l.ID,
	}); err != nil {
		return nil, err
	}
	if p.LateFeeApplied && p.LateFee.IsPositive() {
		if _, err := book.Transfer(ctx, ledger.Entry{
			From: l.BorrowerID, To: ledger.Platform, Amount: p.LateFee,
			Note: fmt.Sprintf("Late fee %d for loan %s", p.Seq, l.LoanID), LoanID: &l.ID,
		}); err != nil {
			return nil, err
		}
	}

	now := u.now()
	if err := r.Payments.MarkPaid(ctx, p, now); err != nil {
		return nil, err
	}

	left, err := r.Payments.CountUnpaid(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	if left == 0 {
		if err := l.Advance(loan.StatusCompleted, now); err != nil {
			return nil, err
		}
		if err := r.Loans.SaveTransition(ctx, l, loan.StatusFunded); err != nil {
			return nil, err
		}
	}

	return &SettleDTO{
		Payment:    toDTO(p, l.LoanID, u.now()),
		Charged:    p.AmountDue(),
		LoanStatus: string(l.Status),
	}, nil
}

// dispatch renders and sends a message about one installment. Lookup
// failures are logged; notification never fails the caller.
func (u *Usecase) dispatch(ctx context.Context, paymentID string, render func(notification.Installment, time.Time) notification.Message) {
	p, err := u.repos.Payments.GetByPaymentID(ctx, paymentID)
	if err != nil {
		u.log.Warn("notification skipped", zap.String("payment_id", paymentID), zap.Error(err))
		return
	}
	l, err := u.repos.Loans.GetByID(ctx, p.LoanID)
	if err != nil {
		u.log.Warn("notification skipped", zap.String("payment_id", paymentID), zap.Error(err))
		return
	}
	recipient := l.BorrowerID
	if prof, err := u.repos.Profiles.GetByUserID(ctx, l.BorrowerID); err == nil && prof.Email != "" {
		recipient = prof.Email
	}
	u.notify.Dispatch(ctx, render(notification.Installment{
		Recipient: recipient,
		LoanID:    l.LoanID,
		PaymentID: p.PaymentID,
		Amount:    p.Amount,
		DueDate:   p.DueDate,
		PaidAt:    p.PaidAt,
	}, u.now()))
}

// toDTO renders an installment as seen at now; paid ones are never past due.
func toDTO(p *payment.Payment, loanID string, now time.Time) PaymentDTO {
	dto := PaymentDTO{
		PaymentID:      p.PaymentID,
		LoanID:         loanID,
		Seq:            p.Seq,
		DueDate:        p.DueDate.Format("2006-01-02"),
		Amount:         p.Amount,
		LateFee:        p.LateFee,
		LateFeeApplied: p.LateFeeApplied,
		Paid:           p.Paid,
		PaidAt:         p.PaidAt,
	}
	if !p.Paid {
		dto.DaysPastDue = p.DaysPastDue(now)
	}
	return dto
}
