// Package app wires repositories, usecases and collaborators for the
// binaries.
package app

import (
	"p2p-lending/internal/adapter/notify"
	"p2p-lending/internal/adapter/repository/mysql"
	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/notification"
	"p2p-lending/internal/usecase/ledger"
	loanUC "p2p-lending/internal/usecase/loan"
	offerUC "p2p-lending/internal/usecase/offer"
	paymentUC "p2p-lending/internal/usecase/payment"
	"p2p-lending/internal/usecase/reconcile"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Ledger   *ledger.Usecase
	Loans    *loanUC.Usecase
	Offers   *offerUC.Usecase
	Payments *paymentUC.Usecase
	Sweeper  *reconcile.Sweeper
	Notifier notification.Dispatcher
}

// New builds the usecases over db. Notifications are always logged and also
// published to stream when rdb is set.
func New(db *gorm.DB, rdb redis.Cmdable, stream string, policy loan.Policy, log *zap.Logger) *App {
	tx := mysql.NewGormUoW(db)
	repos := mysql.Repos(db)

	notifier := notify.Fanout{notify.NewLog(log.Named("notify"))}
	if rdb != nil {
		notifier = append(notifier, notify.NewStream(rdb, stream, log.Named("notify")))
	}

	a := &App{
		Ledger:   ledger.NewUsecase(tx, repos, log.Named("ledger")),
		Loans:    loanUC.NewUsecase(tx, repos, policy, log.Named("loan")),
		Offers:   offerUC.NewUsecase(tx, repos, policy, log.Named("offer")),
		Payments: paymentUC.NewUsecase(tx, repos, policy, notifier, log.Named("payment")),
		Notifier: notifier,
	}
	a.Sweeper = reconcile.NewSweeper(repos, policy, a.Payments, a.Loans, a.Offers, log.Named("sweep"))
	return a
}
