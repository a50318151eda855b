package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestPostgresDSN(t *testing.T) {
	clearEnv(t, "PG_DSN", "PG_HOST", "PG_PORT", "PG_USER", "PG_PASSWORD", "PG_DB", "PG_SSLMODE")
	assert.Equal(t, "postgres://postgres@localhost:5432/sectorwatch?sslmode=disable", PostgresDSN())

	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PASSWORD", "p@ss")
	t.Setenv("PG_DB", "gw2")
	assert.Equal(t, "postgres://postgres:p%40ss@db:5432/gw2?sslmode=disable", PostgresDSN())

	t.Setenv("PG_DSN", "postgres://other@pg/x")
	assert.Equal(t, "postgres://other@pg/x", PostgresDSN())
}

func TestRedisOptionsFromEnv(t *testing.T) {
	clearEnv(t, "REDIS_URL", "REDIS_HOST", "REDIS_PORT", "REDIS_PASS", "REDIS_DB")
	opt, err := RedisOptionsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opt.Addr)
	assert.Equal(t, 0, opt.DB)

	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	opt, err = RedisOptionsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, 2, opt.DB)

	t.Setenv("REDIS_DB", "bad")
	_, err = RedisOptionsFromEnv()
	assert.Error(t, err)
	_, err = OpenRedisFromEnv()
	assert.Error(t, err)

	t.Setenv("REDIS_URL", "redis://:secret@r1:6390/3")
	rc, err := OpenRedisFromEnv()
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "r1:6390", rc.Options().Addr)
	assert.Equal(t, "secret", rc.Options().Password)
	assert.Equal(t, 3, rc.Options().DB)

	t.Setenv("REDIS_URL", "http://nope")
	_, err = RedisOptionsFromEnv()
	assert.Error(t, err)
}
