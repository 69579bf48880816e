package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLockTimeout 在重试次数内没有拿到锁
var ErrLockTimeout = errors.New("acquire lock timeout")

// Locker 基于 SETNX 的分布式互斥锁，多实例部署时保证同一会话三元组串行创建
type Locker struct {
	ttl     time.Duration
	retries int
}

func NewLocker(ttl time.Duration, retries int) *Locker {
	return &Locker{ttl: ttl, retries: retries}
}

// Lock 返回的 unlock 只释放本次加的锁
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := TryLock(ctx, key, token, l.ttl, l.retries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockTimeout
	}
	return func() {
		UnLock(context.WithoutCancel(ctx), key, token)
	}, nil
}
