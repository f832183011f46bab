package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commune/internal/platform/config"
)

func TestNew_NotConfigured(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestOptions(t *testing.T) {
	opts, err := options(config.RedisConfig{
		URL:         "redis://:pw@cache.internal:6380/2",
		PoolSize:    20,
		DialTimeout: time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)
	assert.Equal(t, "commune", opts.ClientName)

	_, err = options(config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}
