package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	httpadp "p2p-lending/internal/adapter/http"
	idem "p2p-lending/internal/adapter/middleware"
	"p2p-lending/internal/app"
	"p2p-lending/internal/config"
	"p2p-lending/internal/infrastructure/cache"
	"p2p-lending/internal/infrastructure/db"
	"p2p-lending/internal/infrastructure/logger"
	"p2p-lending/internal/infrastructure/scheduler"
	"p2p-lending/internal/usecase/reconcile"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepTimeout    = 10 * time.Minute
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(ctx, cfg.MySQLDSN(), cfg.DBOptions(), log)
	if err != nil {
		return err
	}
	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	a := app.New(gdb, rdb, cfg.NotificationStream, cfg.Policy(), log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())

	// routes
	httpadp.Register(e, httpadp.Handlers{
		Health:   httpadp.NewHandler(healthChecks(gdb, rdb)),
		Loans:    httpadp.NewLoanHandler(a.Loans, log),
		Offers:   httpadp.NewOfferHandler(a.Offers, log),
		Payments: httpadp.NewPaymentHandler(a.Payments, log),
		Profiles: httpadp.NewProfileHandler(a.Ledger, log),
	}, idem.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second, log.Named("idempotency")))

	wait := func() {}
	if cfg.SchedulerEnabled {
		s := scheduler.New([]scheduler.Job{
			sweepJob(a.Sweeper, reconcile.JobCollect, cfg.CollectInterval),
			sweepJob(a.Sweeper, reconcile.JobOverdue, cfg.OverdueInterval),
			sweepJob(a.Sweeper, reconcile.JobRollup, cfg.RollupInterval),
			sweepJob(a.Sweeper, reconcile.JobExpire, cfg.ExpireInterval),
		}, cache.NewLocker(rdb, "lending:sweep:"), sweepTimeout, log.Named("scheduler"))
		wait = s.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.AppPort
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		wait()
		return err
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	wait()
	return err
}

func healthChecks(gdb *gorm.DB, rdb *redis.Client) map[string]httpadp.Check {
	return map[string]httpadp.Check{
		"mysql": func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
}

func sweepJob(s *reconcile.Sweeper, name string, every time.Duration) scheduler.Job {
	return scheduler.Job{
		Name:     name,
		Interval: every,
		Run: func(ctx context.Context) error {
			_, err := s.Run(ctx, name)
			return err
		},
	}
}
