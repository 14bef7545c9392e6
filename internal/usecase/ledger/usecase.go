package ledger

import (
	"context"
	"errors"

	"p2p-lending/internal/domain/profile"
	"p2p-lending/internal/domain/transaction"
	"p2p-lending/internal/domain/uow"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultHistoryLimit caps transaction history when the caller gives none.
const DefaultHistoryLimit = 100

type Usecase struct {
	uow   uow.UnitOfWork
	repos uow.Repos
	log   *zap.Logger
}

// NewUsecase: repos serve reads, tx wraps every balance change.
func NewUsecase(tx uow.UnitOfWork, repos uow.Repos, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{uow: tx, repos: repos, log: log}
}

func (u *Usecase) Deposit(ctx context.Context, in AmountInput) (*BalanceDTO, error) {
	return u.move(ctx, Entry{From: Platform, To: in.UserID, Amount: in.Amount, Note: "Deposit"}, in.UserID)
}

func (u *Usecase) Withdraw(ctx context.Context, in AmountInput) (*BalanceDTO, error) {
	return u.move(ctx, Entry{From: in.UserID, To: Platform, Amount: in.Amount, Note: "Withdrawal"}, in.UserID)
}

func (u *Usecase) move(ctx context.Context, e Entry, userID string) (*BalanceDTO, error) {
	var dto *BalanceDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		book := NewBook(r)
		if _, err := book.Transfer(ctx, e); err != nil {
			return err
		}
		p, err := book.Profile(ctx, userID)
		if err != nil {
			return err
		}
		dto = toBalanceDTO(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("balance changed",
		zap.String("user_id", userID),
		zap.String("note", e.Note),
		zap.String("amount", e.Amount.StringFixed(2)))
	return dto, nil
}

// Balance reports a zero balance for users who never touched the ledger.
func (u *Usecase) Balance(ctx context.Context, userID string) (*BalanceDTO, error) {
	p, err := u.repos.Profiles.GetByUserID(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return toBalanceDTO(&profile.Profile{UserID: userID, Balance: decimal.Zero, ReservedBalance: decimal.Zero}), nil
	}
	if err != nil {
		return nil, err
	}
	return toBalanceDTO(p), nil
}

func (u *Usecase) Transactions(ctx context.Context, userID string, limit int) ([]TransactionDTO, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := u.repos.Transactions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionDTO, 0, len(rows))
	for _, t := range rows {
		out = append(out, toTransactionDTO(t))
	}
	return out, nil
}

func toBalanceDTO(p *profile.Profile) *BalanceDTO {
	return &BalanceDTO{
		UserID:          p.UserID,
		Email:           p.Email,
		Balance:         p.Balance,
		ReservedBalance: p.ReservedBalance,
		Available:       p.Available(),
	}
}

func toTransactionDTO(t transaction.Transaction) TransactionDTO {
	return TransactionDTO{
		TxID:       t.TxID,
		FromUserID: t.FromUserID,
		ToUserID:   t.ToUserID,
		Amount:     t.Amount,
		Note:       t.Note,
		CreatedAt:  t.CreatedAt,
	}
}
