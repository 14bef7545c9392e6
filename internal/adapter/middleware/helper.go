package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lending:idem:"

// entry is the record kept per request key. InProgress marks the
// provisional claim taken before the handler runs.
type entry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code,omitempty"`
	Body       []byte    `json:"body,omitempty"`
	BodySHA256 string    `json:"body_sha256"`
	RequestAt  time.Time `json:"request_at"`
	StoredAt   time.Time `json:"stored_at"`
}

func (e entry) replayable() bool { return !e.InProgress && e.Code != 0 && len(e.Body) > 0 }

// requestKey scopes a request id to the caller, the method and the route
// template, so two users can reuse the same id.
func requestKey(method, route, userID, requestID string) string {
	return keyPrefix + userID + ":" + strings.ToLower(method) + ":" + route + ":" + strings.ToLower(requestID)
}

func bodyDigest(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

// requestTime parses Ax-Request-At (epoch seconds, epoch milliseconds or
// RFC3339 with a zone) and rejects values further than maxSkew from now.
func requestTime(raw string, now time.Time, maxSkew time.Duration) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing Ax-Request-At")
	}
	var at time.Time
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			at = time.UnixMilli(n).UTC()
		} else {
			at = time.Unix(n, 0).UTC()
		}
	} else if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		at = t.UTC()
	} else {
		return time.Time{}, errors.New("Ax-Request-At must be epoch (s/ms) or RFC3339 with timezone")
	}
	if d := at.Sub(now); d > maxSkew || d < -maxSkew {
		return time.Time{}, errors.New("Ax-Request-At too skewed")
	}
	return at, nil
}

// store keeps idempotency entries in redis.
type store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// claim takes the provisional slot; false means the key already exists.
func (s store) claim(ctx context.Context, key string, e entry) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, payload, provisionalLockTTL).Result()
}

func (s store) load(ctx context.Context, key string) (entry, error) {
	var e entry
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(v, &e); err != nil {
		return e, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return e, nil
}

// finish replaces the claim with the final response for ttl.
func (s store) finish(ctx context.Context, key string, e entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, payload, s.ttl).Err()
}

func (s store) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
