package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	userA = strings.Repeat("b", 32)
	reqA  = strings.Repeat("a", 32)
)

func newStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, store{rdb: rdb, ttl: ttl}
}

func TestRequestKey_ScopesUserMethodRoute(t *testing.T) {
	k := requestKey("POST", "/loans/:loan_id/fund/", userA, strings.ToUpper(reqA))
	assert.Equal(t, "lending:idem:"+userA+":post:/loans/:loan_id/fund/:"+reqA, k)
	assert.NotEqual(t, k, requestKey("POST", "/loans/:loan_id/fund/", strings.Repeat("c", 32), reqA))
	assert.NotEqual(t, k, requestKey("POST", "/loans/:loan_id/open/", userA, reqA))
}

func TestBodyDigest_StableAndDistinct(t *testing.T) {
	a := bodyDigest([]byte(`{"amount":"100"}`))
	assert.Len(t, a, 64)
	assert.Equal(t, a, bodyDigest([]byte(`{"amount":"100"}`)))
	assert.NotEqual(t, a, bodyDigest([]byte(`{"amount":"101"}`)))
}

func TestRequestTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr string
	}{
		{"epoch seconds", strconv.FormatInt(now.Unix(), 10), now, ""},
		{"epoch millis", strconv.FormatInt(now.Add(1500*time.Millisecond).UnixMilli(), 10), now.Add(1500 * time.Millisecond), ""},
		{"rfc3339 with offset", "2026-03-01T19:00:00+07:00", now, ""},
		{"rfc3339 zulu nano", "2026-03-01T12:00:00.25Z", now.Add(250 * time.Millisecond), ""},
		{"missing", "  ", time.Time{}, "missing Ax-Request-At"},
		{"no zone", "2026-03-01T12:00:00", time.Time{}, "RFC3339"},
		{"garbage", "1736123456abc", time.Time{}, "RFC3339"},
		{"too old", now.Add(-maxClockSkew - time.Second).Format(time.RFC3339), time.Time{}, "too skewed"},
		{"too new", now.Add(maxClockSkew + time.Second).Format(time.RFC3339), time.Time{}, "too skewed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := requestTime(tc.raw, now, maxClockSkew)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %v want %v", got, tc.want)
		})
	}
}

func TestStore_ClaimIsExclusive(t *testing.T) {
	mr, st := newStore(t, time.Minute)
	key := requestKey("POST", "/loans/", userA, reqA)

	ok, err := st.claim(context.Background(), key, entry{InProgress: true, BodySHA256: "h"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, provisionalLockTTL, mr.TTL(key))

	ok, err = st.claim(context.Background(), key, entry{InProgress: true, BodySHA256: "other"})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := st.load(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, got.InProgress)
	assert.Equal(t, "h", got.BodySHA256)
	assert.False(t, got.replayable())
}

func TestStore_FinishReplacesClaim(t *testing.T) {
	mr, st := newStore(t, 5*time.Minute)
	key := requestKey("POST", "/profiles/me/deposit/", userA, reqA)

	_, err := st.claim(context.Background(), key, entry{InProgress: true})
	require.NoError(t, err)
	require.NoError(t, st.finish(context.Background(), key, entry{Code: 201, Body: []byte(`{"ok":true}`), BodySHA256: "h"}))
	assert.Equal(t, 5*time.Minute, mr.TTL(key))

	got, err := st.load(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, got.replayable())
	assert.Equal(t, `{"ok":true}`, string(got.Body))

	require.NoError(t, st.release(context.Background(), key))
	assert.False(t, mr.Exists(key))
}

func TestStore_LoadCorruptEntry(t *testing.T) {
	mr, st := newStore(t, time.Minute)
	require.NoError(t, mr.Set("k", "{not json"))

	_, err := st.load(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode idempotency entry")
}

func TestStore_ReleaseError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	st := store{rdb: db, ttl: time.Minute}
	mock.ExpectDel("k").SetErr(errors.New("connection reset"))

	assert.EqualError(t, st.release(context.Background(), "k"), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}
