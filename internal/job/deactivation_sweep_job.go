package job

import (
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/logger"
	"TradeTalent/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

const sweepLockTTL = 10 * time.Minute

// DeactivationSweepJob 重建停用定时器并补偿账号状态，启动时也执行一次
type DeactivationSweepJob struct {
	funnelSvc service.FunnelService
	locker    Locker
	now       func() time.Time
}

func NewDeactivationSweepJob(funnelSvc service.FunnelService, locker Locker) *DeactivationSweepJob {
	return &DeactivationSweepJob{
		funnelSvc: funnelSvc,
		locker:    locker,
		now:       time.Now,
	}
}

func (s *DeactivationSweepJob) Run() {
	traceID := "job-sweep-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	if err := s.RunAt(ctx, s.now()); err != nil {
		log.ErrorContext(ctx, "deactivation sweep failed", "err", err)
	}
}

func (s *DeactivationSweepJob) RunAt(ctx context.Context, now time.Time) error {
	token := uuid.NewString()
	ok, err := s.locker.TryLock(ctx, consts.EngagementSweepLock, token, sweepLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		log.InfoContext(ctx, "deactivation sweep is running elsewhere, skip")
		return nil
	}
	defer s.locker.Unlock(ctx, consts.EngagementSweepLock, token)

	if err = s.funnelSvc.RestoreTimers(ctx, now); err != nil {
		return err
	}
	return s.funnelSvc.Reconcile(ctx)
}
