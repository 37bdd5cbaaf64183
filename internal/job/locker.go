package job

import (
	"context"
	"time"
)

// Locker 多实例部署时保证同一任务只有一个实例在跑
type Locker interface {
	TryLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, value string)
}
