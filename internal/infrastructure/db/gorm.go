package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// Options tunes the connection pool. Debug turns on SQL logging.
type Options struct {
	Debug           bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    30,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// OpenGorm connects to MySQL and pings it once within ctx.
func OpenGorm(ctx context.Context, dsn string, opts Options, log *zap.Logger) (*gorm.DB, error) {
	db, err := OpenGormWithDialector(ctx, mysql.Open(dsn), opts)
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("mysql connected",
			zap.Int("max_open_conns", opts.MaxOpenConns),
			zap.Int("max_idle_conns", opts.MaxIdleConns),
			zap.Bool("debug", opts.Debug))
	}
	return db, nil
}

// OpenGormWithDialector opens and pings an already built dialector.
func OpenGormWithDialector(ctx context.Context, dial gorm.Dialector, opts Options) (*gorm.DB, error) {
	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:               logger.Default.LogMode(level),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}
