// Package dbtest opens throwaway sqlite databases carrying the domain schema.
package dbtest

import (
	"fmt"
	"testing"

	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/offer"
	"p2p-lending/internal/domain/payment"
	"p2p-lending/internal/domain/profile"
	"p2p-lending/internal/domain/transaction"
	"p2p-lending/pkg/id"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models is every table the service owns, in FK order.
var Models = []any{
	&loan.Loan{},
	&offer.Offer{},
	&payment.Payment{},
	&profile.Profile{},
	&transaction.Transaction{},
}

// Open returns an isolated in-memory database with all domain tables.
// The pool is pinned to a single connection so the database lives exactly
// as long as the test; never query the root handle inside a transaction.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", id.NewID32())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}
