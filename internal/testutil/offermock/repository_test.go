package offermock

import (
	"context"
	"errors"
	"testing"

	domain "p2p-lending/internal/domain/offer"
)

func TestRepo_DefaultsReportNothingFound(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}

	if _, err := m.GetByOfferID(ctx, 1, "X"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByOfferID default: %v", err)
	}
	if _, err := m.FindActiveByLender(ctx, 1, "L"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("FindActiveByLender default: %v", err)
	}
	if got, err := m.ListByLoan(ctx, 1); err != nil || got != nil {
		t.Fatalf("ListByLoan default: %v, %v", got, err)
	}
	if err := m.Create(ctx, &domain.Offer{}); err != nil {
		t.Fatalf("Create default: %v", err)
	}
}

func TestRepo_ListByLoanForwardsStatuses(t *testing.T) {
	var got []domain.Status
	m := &Repo{
		ListByLoanFn: func(_ context.Context, loanID uint64, statuses ...domain.Status) ([]domain.Offer, error) {
			if loanID != 9 {
				t.Fatalf("loanID = %d", loanID)
			}
			got = statuses
			return []domain.Offer{{OfferID: "A"}}, nil
		},
	}
	out, err := m.ListByLoan(context.Background(), 9, domain.StatusPending, domain.StatusAccepted)
	if err != nil || len(out) != 1 {
		t.Fatalf("ListByLoan: %v, %v", out, err)
	}
	if len(got) != 2 || got[0] != domain.StatusPending {
		t.Fatalf("statuses not forwarded: %v", got)
	}
}

func TestRepo_SaveStatus(t *testing.T) {
	m := &Repo{
		SaveStatusFn: func(_ context.Context, o *domain.Offer, from domain.Status) error {
			if from != domain.StatusPending || o.Status != domain.StatusRejected {
				t.Fatalf("unexpected args: %s -> %s", from, o.Status)
			}
			return domain.ErrStaleOfferStatus
		},
	}
	err := m.SaveStatus(context.Background(), &domain.Offer{Status: domain.StatusRejected}, domain.StatusPending)
	if !errors.Is(err, domain.ErrStaleOfferStatus) {
		t.Fatalf("SaveStatus: %v", err)
	}
}
