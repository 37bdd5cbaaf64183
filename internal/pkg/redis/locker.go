package redis

import (
	"context"
	"time"
)

// Locker 基于 SetNX 的分布式锁，只尝试一次
type Locker struct{}

func NewLocker() *Locker {
	return &Locker{}
}

func (l *Locker) TryLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return TryLock(ctx, key, value, ttl, 1)
}

func (l *Locker) Unlock(ctx context.Context, key, value string) {
	UnLock(ctx, key, value)
}
