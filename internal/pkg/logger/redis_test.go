package logger

import (
	"bytes"
	"context"
	"errors"
	log "log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Default()
	log.SetDefault(log.New(log.NewJSONHandler(&buf, &log.HandlerOptions{Level: log.LevelDebug})))
	t.Cleanup(func() { log.SetDefault(prev) })
	return &buf
}

func runHook(cmd redis.Cmder, err error) error {
	hook := NewRedisLogger().ProcessHook(func(context.Context, redis.Cmder) error { return err })
	return hook(context.Background(), cmd)
}

func TestRedisHook_LockOutcomes(t *testing.T) {
	buf := captureDefault(t)
	ctx := context.Background()

	held := redis.NewBoolCmd(ctx, "set", "lock:engagement:decay", "host-1", "ex", 600, "nx")
	held.SetVal(false)
	require.NoError(t, runHook(held, nil))

	acquired := redis.NewBoolCmd(ctx, "set", "lock:engagement:sweep", "host-1", "ex", 600, "nx")
	acquired.SetVal(true)
	require.NoError(t, runHook(acquired, nil))

	plain := redis.NewBoolCmd(ctx, "set", "k", "v")
	plain.SetVal(false)
	require.NoError(t, runHook(plain, nil))

	missed := redis.NewCmd(ctx, "eval", unlockScript, 1, "lock:engagement:decay", "host-1")
	missed.SetVal(int64(0))
	require.NoError(t, runHook(missed, nil))

	released := redis.NewCmd(ctx, "eval", unlockScript, 1, "lock:engagement:sweep", "host-1")
	released.SetVal(int64(1))
	require.NoError(t, runHook(released, nil))

	entries := decode(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "Redis Key Held", entries[0]["msg"])
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "lock:engagement:decay", entries[0]["key"])
	assert.Equal(t, "Redis Unlock Missed", entries[1]["msg"])
	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, "lock:engagement:decay", entries[1]["key"])
}

func TestRedisHook_Errors(t *testing.T) {
	buf := captureDefault(t)
	ctx := context.Background()

	assert.ErrorIs(t, runHook(redis.NewStringCmd(ctx, "get", "missing"), redis.Nil), redis.Nil)
	boom := errors.New("READONLY You can't write against a read only replica")
	assert.Equal(t, boom, runHook(redis.NewStatusCmd(ctx, "auth", "user", "secret"), boom))

	entries := decode(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Redis Error", entries[0]["msg"])
	assert.Equal(t, "auth", entries[0]["command"])
	assert.Equal(t, "[PROTECTED]", entries[0]["args"])
	assert.NotContains(t, buf.String(), "secret")
}

func TestRedisHook_PipelineError(t *testing.T) {
	buf := captureDefault(t)
	ctx := context.Background()

	ok := redis.NewStatusCmd(ctx, "set", "a", "1")
	bad := redis.NewIntCmd(ctx, "incr", "a")
	bad.SetErr(errors.New("ERR value is not an integer or out of range"))

	hook := NewRedisLogger().ProcessPipelineHook(func(context.Context, []redis.Cmder) error { return bad.Err() })
	require.Error(t, hook(ctx, []redis.Cmder{ok, bad}))

	entries := decode(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Redis Pipeline Error", entries[0]["msg"])
	assert.Equal(t, "set,incr", entries[0]["commands"])
	assert.Equal(t, "incr", entries[0]["failed"])
	assert.EqualValues(t, 2, entries[0]["cmd_count"])
}
