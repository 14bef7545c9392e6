// Package notify delivers borrower notifications. Delivery is best effort:
// failures are logged and never reach the caller.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"p2p-lending/internal/domain/notification"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// Log writes every message to the structured log.
type Log struct{ log *zap.Logger }

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log}
}

func (d *Log) Dispatch(_ context.Context, m notification.Message) {
	d.log.Info("notification",
		zap.String("event", string(m.Event)),
		zap.String("recipient", m.Recipient),
		zap.String("subject", m.Subject),
		zap.String("loan_id", m.LoanID),
		zap.String("payment_id", m.PaymentID))
}

// Stream appends messages to a Redis stream for downstream senders.
type Stream struct {
	rdb    redis.Cmdable
	stream string
	log    *zap.Logger
}

func NewStream(rdb redis.Cmdable, stream string, log *zap.Logger) *Stream {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stream{rdb: rdb, stream: stream, log: log}
}

func (d *Stream) Dispatch(ctx context.Context, m notification.Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		d.log.Error("notification encode failed", zap.String("event", string(m.Event)), zap.Error(err))
		return
	}
	// Detached from the caller: a request finishing must not drop the publish.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err = d.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: d.stream,
		Values: map[string]any{
			"event":     string(m.Event),
			"recipient": m.Recipient,
			"payload":   payload,
		},
	}).Err()
	if err != nil {
		d.log.Error("notification publish failed",
			zap.String("event", string(m.Event)),
			zap.String("payment_id", m.PaymentID),
			zap.Error(err))
	}
}

// Fanout sends each message to every dispatcher in order.
type Fanout []notification.Dispatcher

func (f Fanout) Dispatch(ctx context.Context, m notification.Message) {
	for _, d := range f {
		d.Dispatch(ctx, m)
	}
}
