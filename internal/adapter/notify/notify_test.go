package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"p2p-lending/internal/domain/notification"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sample() notification.Message {
	return notification.PaymentDue(notification.Installment{
		Recipient: "b@example.com",
		LoanID:    "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		PaymentID: "cccccccccccccccccccccccccccccccc",
		Amount:    decimal.RequireFromString("88.85"),
		DueDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
}

func TestStream_AppendsToStream(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	NewStream(rdb, "lending:notifications", nil).Dispatch(context.Background(), sample())

	entries, err := rdb.XRange(context.Background(), "lending:notifications", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "payment_due", entries[0].Values["event"])
	assert.Equal(t, "b@example.com", entries[0].Values["recipient"])

	var got notification.Message
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["payload"].(string)), &got))
	assert.Equal(t, "Payment Due Reminder", got.Subject)
}

func TestStream_SurvivesCancelledCaller(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewStream(rdb, "n", nil).Dispatch(ctx, sample())

	n, err := rdb.XLen(context.Background(), "n").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStream_ErrorIsLoggedNotReturned(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
		ExpectXAdd(&redis.XAddArgs{Stream: "n"}).SetErr(errors.New("READONLY"))

	core, logs := observer.New(zap.ErrorLevel)
	NewStream(db, "n", zap.New(core)).Dispatch(context.Background(), sample())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "notification publish failed", logs.All()[0].Message)
}

func TestFanout_LogsAndPublishes(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	core, logs := observer.New(zap.InfoLevel)
	d := Fanout{NewLog(zap.New(core)), NewStream(rdb, "n", nil)}
	d.Dispatch(context.Background(), sample())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "payment_due", logs.All()[0].ContextMap()["event"])
	n, err := rdb.XLen(context.Background(), "n").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
