package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRedis_SelectsDB(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := OpenRedis(context.Background(), s.Addr(), 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, 2, c.Options().DB)
	assert.Equal(t, ioTimeout, c.Options().ReadTimeout)

	require.NoError(t, c.Set(context.Background(), "lending:k", "v", 0).Err())
	got, err := s.DB(2).Get("lending:k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestOpenRedis_Failure(t *testing.T) {
	_, err := OpenRedis(context.Background(), "not-a-real-host:6379", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis not-a-real-host:6379")
}

func TestOpenRedis_CancelledContext(t *testing.T) {
	s := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OpenRedis(ctx, s.Addr(), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
