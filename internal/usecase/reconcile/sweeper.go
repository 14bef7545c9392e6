// Package reconcile runs the periodic sweeps that keep loans, installments
// and offers in step with the calendar.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"p2p-lending/internal/domain/errs"
	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/offer"
	"p2p-lending/internal/domain/payment"
	"p2p-lending/internal/domain/uow"
	paymentUC "p2p-lending/internal/usecase/payment"

	"go.uber.org/zap"
)

const (
	JobCollect = "collect"
	JobOverdue = "overdue"
	JobRollup  = "rollup"
	JobExpire  = "expire"
)

// Jobs lists every sweep in the order All runs them.
var Jobs = []string{JobCollect, JobOverdue, JobRollup, JobExpire}

type Collector interface {
	AutoCollect(ctx context.Context, paymentID string) (*paymentUC.SettleDTO, error)
	FlagOverdue(ctx context.Context, paymentID string) (bool, error)
	OverdueCutoff(now time.Time) time.Time
}

type Closer interface {
	Complete(ctx context.Context, loanID string) (bool, error)
	Default(ctx context.Context, loanID string) (bool, error)
	DefaultCutoff(now time.Time) time.Time
}

type Expirer interface {
	ExpireStale(ctx context.Context, o offer.Offer, cutoff time.Time) (bool, error)
	StaleCutoff(now time.Time) time.Time
}

// Report counts what one sweep did. Skipped records lost a race with
// another writer or were not eligible once locked.
type Report struct {
	Job          string    `json:"job"`
	Processed    int       `json:"processed"`
	Successful   int       `json:"successful"`
	Insufficient int       `json:"insufficient,omitempty"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	Completed    int       `json:"completed,omitempty"`
	Defaulted    int       `json:"defaulted,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type Sweeper struct {
	repos    uow.Repos
	policy   loan.Policy
	payments Collector
	loans    Closer
	offers   Expirer
	log      *zap.Logger
	now      func() time.Time
}

func NewSweeper(repos uow.Repos, policy loan.Policy, payments Collector, loans Closer, offers Expirer, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		repos:    repos,
		policy:   policy,
		payments: payments,
		loans:    loans,
		offers:   offers,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run dispatches a sweep by job name.
func (s *Sweeper) Run(ctx context.Context, job string) (Report, error) {
	switch job {
	case JobCollect:
		return s.CollectDue(ctx)
	case JobOverdue:
		return s.FlagOverdue(ctx)
	case JobRollup:
		return s.Rollup(ctx)
	case JobExpire:
		return s.ExpireOffers(ctx)
	default:
		return Report{}, fmt.Errorf("unknown sweep %q", job)
	}
}

// All runs every sweep once. A sweep that cannot start does not stop the
// ones after it; the first such error is returned.
func (s *Sweeper) All(ctx context.Context) ([]Report, error) {
	out := make([]Report, 0, len(Jobs))
	var first error
	for _, job := range Jobs {
		rep, err := s.Run(ctx, job)
		if err != nil {
			s.log.Error("sweep failed", zap.String("job", job), zap.Error(err))
			if first == nil {
				first = err
			}
			continue
		}
		out = append(out, rep)
	}
	return out, first
}

// CollectDue tries every unpaid installment due today or earlier, each in
// its own unit of work.
func (s *Sweeper) CollectDue(ctx context.Context) (Report, error) {
	now := s.now()
	ps, err := s.repos.Payments.ListUnpaidDue(ctx, payment.Date(now))
	if err != nil {
		return Report{}, fmt.Errorf("list due payments: %w", err)
	}
	rep := Report{Job: JobCollect, Processed: len(ps)}
	for _, p := range ps {
		if ctx.Err() != nil {
			break
		}
		_, err := s.payments.AutoCollect(ctx, p.PaymentID)
		switch {
		case err == nil:
			rep.Successful++
		case errors.Is(err, errs.ErrInsufficientFunds):
			rep.Insufficient++
		default:
			s.tally(&rep, "payment_id", p.PaymentID, err)
		}
	}
	return s.done(rep), nil
}

// FlagOverdue applies the late fee to installments past the grace period.
func (s *Sweeper) FlagOverdue(ctx context.Context) (Report, error) {
	now := s.now()
	ps, err := s.repos.Payments.ListUnpaidDue(ctx, s.payments.OverdueCutoff(now))
	if err != nil {
		return Report{}, fmt.Errorf("list overdue payments: %w", err)
	}
	rep := Report{Job: JobOverdue, Processed: len(ps)}
	for _, p := range ps {
		if ctx.Err() != nil {
			break
		}
		applied, err := s.payments.FlagOverdue(ctx, p.PaymentID)
		switch {
		case err != nil:
			s.tally(&rep, "payment_id", p.PaymentID, err)
		case applied:
			rep.Successful++
		default:
			rep.Skipped++
		}
	}
	return s.done(rep), nil
}

// Rollup completes fully paid loans and defaults severely overdue ones.
func (s *Sweeper) Rollup(ctx context.Context) (Report, error) {
	now := s.now()
	funded, err := s.repos.Loans.ListByStatus(ctx, loan.StatusFunded)
	if err != nil {
		return Report{}, fmt.Errorf("list funded loans: %w", err)
	}
	rep := Report{Job: JobRollup, Processed: len(funded)}
	for _, l := range funded {
		if ctx.Err() != nil {
			break
		}
		done, err := s.loans.Complete(ctx, l.LoanID)
		if err != nil {
			s.tally(&rep, "loan_id", l.LoanID, err)
			continue
		}
		if done {
			rep.Completed++
		}
	}

	late, err := s.repos.Loans.ListDefaultCandidates(ctx, s.loans.DefaultCutoff(now), s.policy.DefaultMinOverdue)
	if err != nil {
		return Report{}, fmt.Errorf("list default candidates: %w", err)
	}
	for _, l := range late {
		if ctx.Err() != nil {
			break
		}
		done, err := s.loans.Default(ctx, l.LoanID)
		if err != nil {
			s.tally(&rep, "loan_id", l.LoanID, err)
			continue
		}
		if done {
			rep.Defaulted++
		}
	}
	rep.Successful = rep.Completed + rep.Defaulted
	return s.done(rep), nil
}

// ExpireOffers retires pending offers older than the offer TTL.
func (s *Sweeper) ExpireOffers(ctx context.Context) (Report, error) {
	rep := Report{Job: JobExpire}
	cutoff := s.offers.StaleCutoff(s.now())
	if cutoff.IsZero() {
		return s.done(rep), nil
	}
	stale, err := s.repos.Offers.ListPendingCreatedBefore(ctx, cutoff)
	if err != nil {
		return Report{}, fmt.Errorf("list stale offers: %w", err)
	}
	rep.Processed = len(stale)
	for _, o := range stale {
		if ctx.Err() != nil {
			break
		}
		expired, err := s.offers.ExpireStale(ctx, o, cutoff)
		switch {
		case err != nil:
			s.tally(&rep, "offer_id", o.OfferID, err)
		case expired:
			rep.Successful++
		default:
			rep.Skipped++
		}
	}
	return s.done(rep), nil
}

// tally counts a per-record failure. Transition conflicts mean another
// writer got there first and are not failures.
func (s *Sweeper) tally(rep *Report, key, id string, err error) {
	if errors.Is(err, errs.ErrIllegalTransition) {
		rep.Skipped++
		s.log.Debug("sweep record skipped", zap.String("job", rep.Job), zap.String(key, id), zap.Error(err))
		return
	}
	rep.Failed++
	s.log.Error("sweep record failed", zap.String("job", rep.Job), zap.String(key, id), zap.Error(err))
}

func (s *Sweeper) done(rep Report) Report {
	rep.Timestamp = s.now()
	s.log.Info("sweep finished",
		zap.String("job", rep.Job),
		zap.Int("processed", rep.Processed),
		zap.Int("successful", rep.Successful),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed))
	return rep
}
