package logger

import (
	"KoraChat/internal/pkg/consts"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSlowThreshold = 100 * time.Millisecond

// RedisLoggerHook 记录 redis 错误与慢命令，消息内容和 token 不落日志
type RedisLoggerHook struct {
	slow time.Duration
}

func NewRedisLogger() *RedisLoggerHook {
	return &RedisLoggerHook{slow: redisSlowThreshold}
}

// DialHook 记录建立连接失败
func (s *RedisLoggerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		if err != nil {
			log.ErrorContext(ctx, "Redis Dial Error",
				log.String("addr", addr),
				log.Duration("latency", time.Since(start)),
				log.Any("err", err),
			)
		}
		return conn, err
	}
}

// ProcessHook 单条命令，锁竞争失败(SET NX 返回 nil)不算错误
func (s *RedisLoggerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		elapsed := time.Since(start)

		name := cmd.Name()
		// 订阅连接上的命令由 relay 自行记录
		if name == "psubscribe" || name == "punsubscribe" {
			return err
		}
		if err != nil && (errors.Is(err, redis.Nil) || (name == "client" && strings.Contains(err.Error(), "setinfo"))) {
			return err
		}
		if err == nil && elapsed <= s.slow {
			return nil
		}

		fields := []any{
			log.String("command", name),
			log.String("args", describeArgs(cmd)),
			log.Duration("latency", elapsed),
		}
		if err != nil {
			log.ErrorContext(ctx, "Redis Error", append(fields, log.Any("err", err))...)
		} else {
			log.WarnContext(ctx, "Redis Slow", fields...)
		}
		return err
	}
}

// ProcessPipelineHook 管道命令只记录失败
func (s *RedisLoggerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		if err != nil {
			log.ErrorContext(ctx, "Redis Pipeline Error",
				log.Int("cmd_count", len(cmds)),
				log.Duration("latency", time.Since(start)),
				log.Any("err", err))
		}
		return err
	}
}

// describeArgs 会话频道只保留频道名和负载大小，黑名单 key 隐去 token 签名
func describeArgs(cmd redis.Cmder) string {
	args := cmd.Args()
	switch cmd.Name() {
	case "auth", "hello":
		return "[PROTECTED]"
	case "publish":
		if len(args) == 3 {
			return fmt.Sprintf("[publish %v <%d bytes>]", args[1], payloadSize(args[2]))
		}
	}

	parts := make([]string, len(args))
	for i, a := range args {
		str := fmt.Sprint(a)
		if strings.HasPrefix(str, consts.TokenBlacklistKey) {
			str = consts.TokenBlacklistKey + "[PROTECTED]"
		}
		parts[i] = str
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func payloadSize(v any) int {
	switch p := v.(type) {
	case []byte:
		return len(p)
	case string:
		return len(p)
	default:
		return len(fmt.Sprint(p))
	}
}
