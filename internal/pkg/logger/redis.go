package logger

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSlowThreshold = slowThreshold / 2

// 参数里可能带凭证的命令
var redisProtected = map[string]bool{
	"auth":  true,
	"hello": true,
}

// RedisLoggerHook 记录 Redis 错误与慢命令
// 任务锁、计分去重都走 SET NX，抢占失败与释放落空单独记录
type RedisLoggerHook struct{}

func NewRedisLogger() *RedisLoggerHook {
	return &RedisLoggerHook{}
}

func (s *RedisLoggerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		if err != nil {
			log.ErrorContext(ctx, "Redis Dial Error",
				log.String("network", network),
				log.String("addr", addr),
				log.Duration("latency", time.Since(start)),
				log.Any("err", err),
			)
		}
		return conn, err
	}
}

func (s *RedisLoggerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		elapsed := time.Since(start)

		name := cmd.Name()
		fields := []any{
			log.String("command", name),
			log.String("args", redisArgs(cmd)),
			log.Duration("latency", elapsed),
		}

		switch {
		case err != nil:
			if !quietRedisErr(name, err) {
				log.ErrorContext(ctx, "Redis Error", append(fields, log.Any("err", err))...)
			}
		case elapsed > redisSlowThreshold:
			log.WarnContext(ctx, "Redis Slow", fields...)
		case isSetNX(cmd):
			if b, ok := cmd.(*redis.BoolCmd); ok && !b.Val() {
				log.DebugContext(ctx, "Redis Key Held", log.String("key", redisKey(cmd)))
			}
		case isUnlock(cmd):
			// 返回 0 说明锁已过期或被别人持有，任务跑得比 TTL 长
			if n, _ := cmd.(*redis.Cmd).Int64(); n == 0 {
				log.WarnContext(ctx, "Redis Unlock Missed", log.String("key", redisKey(cmd)))
			}
		}
		return err
	}
}

func (s *RedisLoggerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		elapsed := time.Since(start)

		if err == nil && elapsed <= redisSlowThreshold {
			return nil
		}

		fields := []any{
			log.Int("cmd_count", len(cmds)),
			log.String("commands", pipelineNames(cmds)),
			log.Duration("latency", elapsed),
		}
		if err != nil {
			if failed := firstFailed(cmds); failed != nil {
				fields = append(fields, log.String("failed", failed.Name()), log.Any("cmd_err", failed.Err()))
			}
			log.ErrorContext(ctx, "Redis Pipeline Error", append(fields, log.Any("err", err))...)
		} else {
			log.WarnContext(ctx, "Redis Pipeline Slow", fields...)
		}
		return err
	}
}

func redisArgs(cmd redis.Cmder) string {
	if redisProtected[cmd.Name()] {
		return "[PROTECTED]"
	}
	return fmt.Sprint(cmd.Args())
}

// quietRedisErr key 不存在与旧服务端不认识 CLIENT SETINFO 都不是故障
func quietRedisErr(name string, err error) bool {
	if errors.Is(err, redis.Nil) || err.Error() == "ERR no such key" {
		return true
	}
	return name == "client" && strings.Contains(err.Error(), "setinfo")
}

// isSetNX go-redis 带过期时间的 SetNX 发的是 SET ... NX
func isSetNX(cmd redis.Cmder) bool {
	switch cmd.Name() {
	case "setnx":
		return true
	case "set":
		for _, a := range cmd.Args()[1:] {
			if s, ok := a.(string); ok && strings.EqualFold(s, "nx") {
				return true
			}
		}
	}
	return false
}

func isUnlock(cmd redis.Cmder) bool {
	if cmd.Name() != "eval" {
		return false
	}
	_, ok := cmd.(*redis.Cmd)
	return ok && len(cmd.Args()) > 3 && strings.Contains(fmt.Sprint(cmd.Args()[1]), "'del'")
}

// redisKey 取第一个 key，EVAL 的 key 在 numkeys 之后
func redisKey(cmd redis.Cmder) string {
	args := cmd.Args()
	idx := 1
	if cmd.Name() == "eval" {
		idx = 3
	}
	if len(args) <= idx {
		return ""
	}
	return fmt.Sprint(args[idx])
}

func pipelineNames(cmds []redis.Cmder) string {
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name())
	}
	return strings.Join(names, ",")
}

func firstFailed(cmds []redis.Cmder) redis.Cmder {
	for _, c := range cmds {
		if err := c.Err(); err != nil && !errors.Is(err, redis.Nil) {
			return c
		}
	}
	return nil
}
