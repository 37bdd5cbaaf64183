package job

import (
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/logger"
	"TradeTalent/internal/pkg/metrics"
	"TradeTalent/internal/repository"
	"TradeTalent/internal/service"
	"context"
	"errors"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	decayPageSize = 500
	decayLockTTL  = 2 * time.Hour
)

// DecayReport 一次衰减任务的统计
type DecayReport struct {
	Charged   int
	Unchanged int
	Skipped   int
	Failed    int
}

type DecayJob struct {
	engagementSvc service.EngagementService
	scoreRepo     repository.EngagementScoreRepo
	locker        Locker
	workers       int
	pageSize      int
	now           func() time.Time
}

func NewDecayJob(
	engagementSvc service.EngagementService,
	scoreRepo repository.EngagementScoreRepo,
	locker Locker,
	workers int,
) *DecayJob {
	if workers < 1 {
		workers = 1
	}
	return &DecayJob{
		engagementSvc: engagementSvc,
		scoreRepo:     scoreRepo,
		locker:        locker,
		workers:       workers,
		pageSize:      decayPageSize,
		now:           time.Now,
	}
}

func (s *DecayJob) Run() {
	traceID := "job-decay-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	if _, err := s.RunAt(ctx, s.now()); err != nil {
		log.ErrorContext(ctx, "engagement decay failed", "err", err)
	}
}

// RunAt 对所有未停用用户按 now 计算衰减，单个用户失败不影响其它用户
func (s *DecayJob) RunAt(ctx context.Context, now time.Time) (*DecayReport, error) {
	token := uuid.NewString()
	ok, err := s.locker.TryLock(ctx, consts.EngagementDecayLock, token, decayLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.InfoContext(ctx, "engagement decay is running elsewhere, skip")
		return &DecayReport{}, nil
	}
	defer s.locker.Unlock(ctx, consts.EngagementDecayLock, token)

	start := time.Now()
	defer func() {
		metrics.DecayDuration.Observe(time.Since(start).Seconds())
	}()

	report := &DecayReport{}
	var mu sync.Mutex
	var afterID uint64

	for {
		ids, err := s.scoreRepo.ListActiveUserIDs(ctx, afterID, s.pageSize)
		if err != nil {
			return report, err
		}
		if len(ids) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(s.workers)
		for _, userID := range ids {
			g.Go(func() error {
				res, err := s.engagementSvc.ApplyDecay(ctx, userID, now)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case errors.Is(err, service.ErrUserDeactivated):
					report.Skipped++
					metrics.DecayUsers.WithLabelValues("skipped").Inc()
				case err != nil:
					report.Failed++
					metrics.DecayUsers.WithLabelValues("failed").Inc()
					log.ErrorContext(ctx, "apply decay failed", "user_id", userID, "err", err)
				case res.ChargedDays > 0:
					report.Charged++
					metrics.DecayUsers.WithLabelValues("charged").Inc()
				default:
					report.Unchanged++
					metrics.DecayUsers.WithLabelValues("unchanged").Inc()
				}
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		afterID = ids[len(ids)-1]
	}

	log.InfoContext(ctx, "engagement decay finished",
		"date", now.Format(time.DateOnly),
		"charged", report.Charged,
		"unchanged", report.Unchanged,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"cost", time.Since(start),
	)
	return report, nil
}
