package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"p2p-lending/internal/adapter/repository/mysql"
	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/notification"
	"p2p-lending/internal/domain/offer"
	"p2p-lending/internal/domain/profile"
	"p2p-lending/internal/domain/uow"
	"p2p-lending/internal/testutil/dbtest"
	"p2p-lending/internal/usecase/ledger"
	loanUC "p2p-lending/internal/usecase/loan"
	offerUC "p2p-lending/internal/usecase/offer"
	paymentUC "p2p-lending/internal/usecase/payment"
	"p2p-lending/pkg/id"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recorder struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *recorder) Dispatch(_ context.Context, m notification.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, m.Event)
}

var start = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	repos    uow.Repos
	ledger   *ledger.Usecase
	loans    *loanUC.Usecase
	offers   *offerUC.Usecase
	payments *paymentUC.Usecase
	sweeper  *Sweeper
	sent     *recorder
	clock    time.Time
}

func newFixture(t *testing.T, policy loan.Policy) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	tx := mysql.NewGormUoW(db)
	repos := mysql.Repos(db)

	f := &fixture{repos: repos, sent: &recorder{}, clock: start}
	now := func() time.Time { return f.clock }
	f.ledger = ledger.NewUsecase(tx, repos, nil)
	f.loans = loanUC.NewUsecase(tx, repos, policy, nil).WithClock(now)
	f.offers = offerUC.NewUsecase(tx, repos, policy, nil).WithClock(now)
	f.payments = paymentUC.NewUsecase(tx, repos, policy, f.sent, nil).WithClock(now)
	f.sweeper = NewSweeper(repos, policy, f.payments, f.loans, f.offers, nil).WithClock(now)
	return f
}

func (f *fixture) user(t *testing.T, deposit string) string {
	t.Helper()
	u := id.NewID32()
	if deposit != "" {
		_, err := f.ledger.Deposit(context.Background(), ledger.AmountInput{UserID: u, Amount: dec(deposit)})
		require.NoError(t, err)
	}
	return u
}

func (f *fixture) balance(t *testing.T, user string) *profile.Profile {
	t.Helper()
	p, err := f.repos.Profiles.GetByUserID(context.Background(), user)
	require.NoError(t, err)
	return p
}

// openLoan creates and opens a loan for a fresh borrower.
func (f *fixture) openLoan(t *testing.T, amount string, term int, rate string) (loanID, borrower string) {
	t.Helper()
	ctx := context.Background()
	borrower = f.user(t, "")
	r := dec(rate)
	l, err := f.loans.Create(ctx, loanUC.CreateLoanInput{BorrowerID: borrower, Amount: dec(amount), TermMonths: term, InterestRate: &r})
	require.NoError(t, err)
	_, err = f.loans.Open(ctx, l.LoanID, borrower)
	require.NoError(t, err)
	return l.LoanID, borrower
}

// fundLoan runs a loan through bidding and funding with a single lender.
func (f *fixture) fundLoan(t *testing.T, amount string, term int) (loanID, borrower, lender string) {
	t.Helper()
	ctx := context.Background()
	loanID, borrower = f.openLoan(t, amount, term, "12")
	lender = f.user(t, dec(amount).Add(dec("100")).String())
	_, err := f.offers.Submit(ctx, offerUC.SubmitInput{LoanID: loanID, LenderID: lender, InterestRate: dec("12")})
	require.NoError(t, err)
	_, err = f.offers.Accept(ctx, offerUC.AcceptInput{LoanID: loanID, BorrowerID: borrower})
	require.NoError(t, err)
	_, err = f.loans.Fund(ctx, loanID, lender)
	require.NoError(t, err)
	return loanID, borrower, lender
}

func (f *fixture) status(t *testing.T, loanID string) loan.Status {
	t.Helper()
	l, err := f.repos.Loans.GetByLoanID(context.Background(), loanID)
	require.NoError(t, err)
	return l.Status
}

func TestEndToEnd_BidFundRepay(t *testing.T) {
	f := newFixture(t, loan.DefaultPolicy())
	ctx := context.Background()

	loanID, borrower := f.openLoan(t, "5000", 6, "8")
	lender := f.user(t, "6000")

	sub, err := f.offers.Submit(ctx, offerUC.SubmitInput{LoanID: loanID, LenderID: lender, InterestRate: dec("7")})
	require.NoError(t, err)
	assert.Equal(t, string(loan.StatusOffered), sub.Loan.Status)
	assert.True(t, f.balance(t, lender).ReservedBalance.Equal(dec("5003.75")))

	acc, err := f.offers.Accept(ctx, offerUC.AcceptInput{LoanID: loanID, BorrowerID: borrower})
	require.NoError(t, err)
	assert.Equal(t, string(loan.StatusAccepted), acc.Loan.Status)

	funded, err := f.loans.Fund(ctx, loanID, lender)
	require.NoError(t, err)
	assert.Equal(t, 6, funded.Payments)
	assert.True(t, funded.Installment.Equal(dec("850.43")), funded.Installment.String())
	assert.True(t, f.balance(t, borrower).Balance.Equal(dec("5000")))
	assert.True(t, f.balance(t, lender).Balance.Equal(dec("996.25")))

	_, err = f.ledger.Deposit(ctx, ledger.AmountInput{UserID: borrower, Amount: dec("102.58")})
	require.NoError(t, err)

	schedule, err := f.payments.Schedule(ctx, loanID, borrower)
	require.NoError(t, err)
	require.Len(t, schedule, 6)
	for i, p := range schedule {
		f.clock = start.AddDate(0, 0, 30*(i+1))
		_, err := f.payments.Pay(ctx, paymentUC.PayInput{LoanID: loanID, PaymentID: p.PaymentID, BorrowerID: borrower})
		require.NoError(t, err, "installment %d", p.Seq)
	}

	assert.Equal(t, loan.StatusCompleted, f.status(t, loanID))
	assert.True(t, f.balance(t, borrower).Balance.IsZero())
	assert.True(t, f.balance(t, lender).Balance.Equal(dec("6098.83")))
}

func TestCollectDue_SecondRunPaysNothing(t *testing.T) {
	f := newFixture(t, loan.DefaultPolicy())
	ctx := context.Background()
	f.fundLoan(t, "1000", 12)

	f.clock = start.AddDate(0, 0, 61)
	rep, err := f.sweeper.CollectDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 2, rep.Successful)
	assert.Equal(t, f.clock, rep.Timestamp)

	rep, err = f.sweeper.CollectDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Processed)
	assert.Zero(t, rep.Successful)

	assert.Equal(t, []notification.Event{notification.EventPaymentProcessed, notification.EventPaymentProcessed}, f.sent.events)
}

func TestCollectDue_InsufficientFundsSendsReminder(t *testing.T) {
	f := newFixture(t, loan.DefaultPolicy())
	ctx := context.Background()
	_, borrower, _ := f.fundLoan(t, "1000", 12)
	_, err := f.ledger.Withdraw(ctx, ledger.AmountInput{UserID: borrower, Amount: dec("950")})
	require.NoError(t, err)

	f.clock = start.AddDate(0, 0, 30)
	rep, err := f.sweeper.CollectDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Job: JobCollect, Processed: 1, Insufficient: 1, Timestamp: f.clock}, rep)
	assert.Equal(t, []notification.Event{notification.EventPaymentDue}, f.sent.events)
	assert.True(t, f.balance(t, borrower).Balance.Equal(dec("50")))
}

func TestFlagOverdue_AppliesOnce(t *testing.T) {
	f := newFixture(t, loan.DefaultPolicy())
	ctx := context.Background()
	f.fundLoan(t, "1000", 12)

	f.clock = start.AddDate(0, 0, 36)
	rep, err := f.sweeper.FlagOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Processed, "inside the grace period")

	f.clock = start.AddDate(0, 0, 37)
	rep, err = f.sweeper.FlagOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Successful)

	rep, err = f.sweeper.FlagOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Processed)
	assert.Equal(t, 1, rep.Skipped)
	assert.Zero(t, rep.Successful)

	assert.Equal(t, []notification.Event{notification.EventPaymentOverdue}, f.sent.events)
}

func TestRollup(t *testing.T) {
	f := newFixture(t, loan.DefaultPolicy())
	ctx := context.Background()

	paidID, _, _ := f.fundLoan(t, "1000", 3)
	lateID, lateBorrower, _ := f.fundLoan(t, "1000", 12)
	_, err := f.ledger.Withdraw(ctx, ledger.AmountInput{UserID: lateBorrower, Amount: dec("1000")})
	require.NoError(t, err)

	l, err := f.repos.Loans.GetByLoanID(ctx, paidID)
	require.NoError(t, err)
	ps, err := f.repos.Payments.ListByLoan(ctx, l.ID)
	require.NoError(t, err)
	for i := range ps {
		require.NoError(t, f.repos.Payments.MarkPaid(ctx, &ps[i], start))
	}

	f.clock = start.AddDate(0, 0, 95)
	rep, err := f.sweeper.Rollup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 1, rep.Completed)
	assert.Equal(t, 1, rep.Defaulted)
	assert.Equal(t, 2, rep.Successful)

	assert.Equal(t, loan.StatusCompleted, f.status(t, paidID))
	assert.Equal(t, loan.StatusDefaulted, f.status(t, lateID))

	rep, err = f.sweeper.Rollup(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Processed)
}

func TestExpireOffers(t *testing.T) {
	f := newFixture(t, loan.DefaultPolicy())
	ctx := context.Background()
	loanID, _ := f.openLoan(t, "1000", 12, "12")
	lender := f.user(t, "1500")
	_, err := f.offers.Submit(ctx, offerUC.SubmitInput{LoanID: loanID, LenderID: lender, InterestRate: dec("10")})
	require.NoError(t, err)

	f.clock = start.Add(71 * time.Hour)
	rep, err := f.sweeper.ExpireOffers(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Processed)

	f.clock = start.Add(73 * time.Hour)
	rep, err = f.sweeper.ExpireOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Successful)

	assert.Equal(t, loan.StatusOpen, f.status(t, loanID))
	assert.True(t, f.balance(t, lender).ReservedBalance.IsZero())

	listed, err := f.offers.List(ctx, loanID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, string(offer.StatusExpired), listed[0].Status)
}

func TestExpireOffers_DisabledTTL(t *testing.T) {
	policy := loan.DefaultPolicy()
	policy.OfferTTL = 0
	f := newFixture(t, policy)
	ctx := context.Background()
	loanID, _ := f.openLoan(t, "1000", 12, "12")
	_, err := f.offers.Submit(ctx, offerUC.SubmitInput{LoanID: loanID, LenderID: f.user(t, "1500"), InterestRate: dec("10")})
	require.NoError(t, err)

	f.clock = start.AddDate(1, 0, 0)
	rep, err := f.sweeper.ExpireOffers(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Processed)
	assert.Equal(t, loan.StatusOffered, f.status(t, loanID))
}

func TestRun(t *testing.T) {
	f := newFixture(t, loan.DefaultPolicy())
	ctx := context.Background()

	_, err := f.sweeper.Run(ctx, "compact")
	assert.Error(t, err)

	reps, err := f.sweeper.All(ctx)
	require.NoError(t, err)
	require.Len(t, reps, len(Jobs))
	for i, rep := range reps {
		assert.Equal(t, Jobs[i], rep.Job)
	}
}
