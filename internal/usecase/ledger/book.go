package ledger

import (
	"context"
	"fmt"
	"sort"

	"p2p-lending/internal/domain/profile"
	"p2p-lending/internal/domain/transaction"
	"p2p-lending/internal/domain/uow"
	"p2p-lending/pkg/id"

	"github.com/shopspring/decimal"
)

// Platform is the empty party: money sent to it leaves the system, money
// taken from it enters.
const Platform = ""

// Entry is one balance movement to record.
type Entry struct {
	From   string
	To     string
	Amount decimal.Decimal
	Note   string
	LoanID *uint64
}

// Book applies balance movements inside one unit of work. Profiles are
// locked on first touch and reused for the rest of the unit.
type Book struct {
	repos  uow.Repos
	locked map[string]*profile.Profile
}

func NewBook(r uow.Repos) *Book {
	return &Book{repos: r, locked: map[string]*profile.Profile{}}
}

// Lock takes row locks on the given users' profiles in ascending user-id
// order, creating missing profiles. The platform party is ignored.
func (b *Book) Lock(ctx context.Context, userIDs ...string) error {
	ids := make([]string, 0, len(userIDs))
	for _, u := range userIDs {
		if u == Platform {
			continue
		}
		if _, ok := b.locked[u]; ok {
			continue
		}
		ids = append(ids, u)
	}
	sort.Strings(ids)
	for _, u := range ids {
		if _, ok := b.locked[u]; ok {
			continue
		}
		p, err := b.repos.Profiles.GetOrCreateForUpdate(ctx, u)
		if err != nil {
			return fmt.Errorf("lock profile %s: %w", u, err)
		}
		b.locked[u] = p
	}
	return nil
}

// Profile returns the locked profile of userID.
func (b *Book) Profile(ctx context.Context, userID string) (*profile.Profile, error) {
	if err := b.Lock(ctx, userID); err != nil {
		return nil, err
	}
	return b.locked[userID], nil
}

// Debit removes amount from the user's balance. Reserved funds are not
// spendable.
func (b *Book) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	p, err := b.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !p.HasSufficientFunds(amount) {
		return profile.ErrInsufficientFunds
	}
	p.Balance = p.Balance.Sub(amount)
	return b.repos.Profiles.Save(ctx, p)
}

func (b *Book) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	p, err := b.Profile(ctx, userID)
	if err != nil {
		return err
	}
	p.Balance = p.Balance.Add(amount)
	return b.repos.Profiles.Save(ctx, p)
}

// Reserve earmarks amount of the available balance. No Transaction is
// written: nothing moves.
func (b *Book) Reserve(ctx context.Context, userID string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	p, err := b.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !p.HasSufficientFunds(amount) {
		return profile.ErrInsufficientFunds
	}
	p.ReservedBalance = p.ReservedBalance.Add(amount)
	return b.repos.Profiles.Save(ctx, p)
}

func (b *Book) Release(ctx context.Context, userID string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	p, err := b.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if amount.GreaterThan(p.ReservedBalance) {
		return fmt.Errorf("%w: release %s of %s reserved for %s",
			profile.ErrOverRelease, amount.StringFixed(2), p.ReservedBalance.StringFixed(2), userID)
	}
	p.ReservedBalance = p.ReservedBalance.Sub(amount)
	return b.repos.Profiles.Save(ctx, p)
}

// Transfer debits From, credits To and appends exactly one Transaction.
func (b *Book) Transfer(ctx context.Context, e Entry) (*transaction.Transaction, error) {
	if err := checkAmount(e.Amount); err != nil {
		return nil, err
	}
	if err := b.Lock(ctx, e.From, e.To); err != nil {
		return nil, err
	}
	if e.From != Platform {
		if err := b.Debit(ctx, e.From, e.Amount); err != nil {
			return nil, err
		}
	}
	if e.To != Platform {
		if err := b.Credit(ctx, e.To, e.Amount); err != nil {
			return nil, err
		}
	}

	t := &transaction.Transaction{
		TxID:       id.NewID32(),
		FromUserID: party(e.From),
		ToUserID:   party(e.To),
		Amount:     e.Amount,
		Note:       e.Note,
		LoanID:     e.LoanID,
	}
	if err := b.repos.Transactions.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func party(userID string) *string {
	if userID == Platform {
		return nil
	}
	return &userID
}

// checkAmount accepts strictly positive amounts with at most two decimals.
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(2)) {
		return profile.ErrInvalidAmount
	}
	return nil
}
