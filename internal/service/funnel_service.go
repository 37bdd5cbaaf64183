package service

import (
	"TradeTalent/internal/model"
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/logger"
	"TradeTalent/internal/pkg/metrics"
	"TradeTalent/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FunnelService 召回漏斗：阶段判定、冷却、停用警告与停用
type FunnelService interface {
	OnScoreChanged(ctx context.Context, userID uint64, kind ActionKind, score int) error
	Evaluate(ctx context.Context, userID uint64, score int) error
	ExpireWarning(ctx context.Context, userID uint64) error
	RestoreTimers(ctx context.Context, now time.Time) error
	Reconcile(ctx context.Context) error
	Acknowledge(ctx context.Context, userID, recordID uint64) error
	ClearStages(ctx context.Context, userID uint64, at time.Time) error
	OnReactivated(ctx context.Context, userID uint64) error
	Shutdown()
}

// FunnelDeps 漏斗依赖的仓储与外部协作方
type FunnelDeps struct {
	Tx          repository.Transactor
	Scores      repository.EngagementScoreRepo
	Funnel      repository.FunnelRepo
	History     repository.EngagementHistoryRepo
	Suggestions repository.SuggestionRepo
	Digests     repository.DigestRepo
	Listings    repository.ListingRepo
	Users       repository.UserRepo
	Notifier    EngagementNotifier
}

// fired 事务内触发的阶段，提交后再执行副作用
type fired struct {
	stage      Stage
	record     *model.FunnelStage
	listingIDs []uint64
}

type funnelServiceImpl struct {
	tx          repository.Transactor
	scoreRepo   repository.EngagementScoreRepo
	funnelRepo  repository.FunnelRepo
	historyRepo repository.EngagementHistoryRepo
	suggestRepo repository.SuggestionRepo
	digestRepo  repository.DigestRepo
	listingRepo repository.ListingRepo
	userRepo    repository.UserRepo
	notifier    EngagementNotifier
	timer       *DeactivationTimer
	grace       time.Duration
	now         func() time.Time
}

func NewFunnelService(deps FunnelDeps) FunnelService {
	return newFunnelService(deps)
}

func newFunnelService(deps FunnelDeps) *funnelServiceImpl {
	s := &funnelServiceImpl{
		tx:          deps.Tx,
		scoreRepo:   deps.Scores,
		funnelRepo:  deps.Funnel,
		historyRepo: deps.History,
		suggestRepo: deps.Suggestions,
		digestRepo:  deps.Digests,
		listingRepo: deps.Listings,
		userRepo:    deps.Users,
		notifier:    deps.Notifier,
		grace:       GracePeriod,
		now:         time.Now,
	}
	s.timer = NewDeactivationTimer(s.onTimerFire)
	return s
}

// OnScoreChanged 用户主动行为先解除未处理的停用警告，再按新分数评估
func (s *funnelServiceImpl) OnScoreChanged(ctx context.Context, userID uint64, kind ActionKind, score int) error {
	if kind.IsUserAction() {
		if err := s.acknowledgeWarning(ctx, userID); err != nil {
			return err
		}
	}
	return s.Evaluate(ctx, userID, score)
}

func (s *funnelServiceImpl) acknowledgeWarning(ctx context.Context, userID uint64) error {
	var acked int64
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.scoreRepo.LockByUserID(txCtx, userID); err != nil {
			return err
		}
		n, err := s.funnelRepo.AcknowledgeOutstanding(txCtx, userID, string(StageDeactivationWarning), s.now())
		acked = n
		return err
	})
	if err != nil {
		return err
	}

	if acked > 0 {
		s.timer.Disarm(userID)
		log.InfoContext(ctx, "deactivation warning acknowledged", "user_id", userID)
	}
	return nil
}

// Evaluate 以行锁串行化同一用户的阶段判定，锁内读到的分数优先于传入值
func (s *funnelServiceImpl) Evaluate(ctx context.Context, userID uint64, score int) error {
	var result *fired

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		row, err := s.scoreRepo.LockByUserID(txCtx, userID)
		if err != nil {
			return err
		}
		if row != nil {
			score = row.Score
		}

		deactivated, err := s.funnelRepo.IsDeactivated(txCtx, userID)
		if err != nil {
			return err
		}
		if deactivated {
			return nil
		}

		now := s.now()
		stage := StageForScore(score)
		switch stage {
		case StageEngaged:
			return nil
		case StageDeactivated:
			result, err = s.recordDeactivation(txCtx, userID, now)
			return err
		}

		last, err := s.funnelRepo.LatestByStage(txCtx, userID, string(stage))
		if err != nil {
			return err
		}
		if last != nil && now.Sub(last.TriggeredAt) < stage.Cooldown() {
			return nil
		}

		result, err = s.fireStage(txCtx, userID, stage, row, now)
		return err
	})
	if err != nil {
		return err
	}

	if result != nil {
		s.afterFired(ctx, userID, result)
	}
	return nil
}

func (s *funnelServiceImpl) fireStage(ctx context.Context, userID uint64, stage Stage, row *model.EngagementScore, now time.Time) (*fired, error) {
	result := &fired{stage: stage}

	switch stage {
	case StageNudge:
		listing, err := s.pickMatch(ctx, userID)
		if err != nil {
			return nil, err
		}
		if listing != nil {
			suggestion := &model.MatchSuggestion{
				UserID:             userID,
				SuggestedServiceID: listing.ID,
				MatchScore:         matchScore,
				CreatedAt:          now,
			}
			if err = s.suggestRepo.Create(ctx, suggestion); err != nil {
				return nil, err
			}
			result.listingIDs = []uint64{listing.ID}
		}

	case StageMissedOpportunities:
		if row == nil {
			return nil, nil
		}
		listings, err := s.listingRepo.NewSince(ctx, userID, row.LastLogin, digestSize)
		if err != nil {
			return nil, err
		}
		// 没有可推荐的服务时不触发，也不生成空摘要
		if len(listings) == 0 {
			return nil, nil
		}
		ids := make([]uint64, 0, len(listings))
		for _, l := range listings {
			ids = append(ids, l.ID)
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		digest := &model.MissedOpportunitiesDigest{
			UserID:     userID,
			ServiceIDs: datatypes.JSON(raw),
			CreatedAt:  now,
		}
		if err = s.digestRepo.Create(ctx, digest); err != nil {
			return nil, err
		}
		result.listingIDs = ids
	}

	record := &model.FunnelStage{
		UserID:      userID,
		Stage:       string(stage),
		TriggeredAt: now,
		CreatedAt:   now,
	}
	if err := s.funnelRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	result.record = record
	return result, nil
}

// pickMatch 声明技能 -> 自己发布过的类目 -> 全站
func (s *funnelServiceImpl) pickMatch(ctx context.Context, userID uint64) (*model.ServiceListing, error) {
	categories, err := s.userRepo.GetSkillCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		categories, err = s.listingRepo.CategoriesOfOwner(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
	return s.listingRepo.BestMatch(ctx, userID, categories)
}

// recordDeactivation 先落库 DEACTIVATED 记录，账号状态在提交后同步
func (s *funnelServiceImpl) recordDeactivation(ctx context.Context, userID uint64, now time.Time) (*fired, error) {
	record := &model.FunnelStage{
		UserID:      userID,
		Stage:       string(StageDeactivated),
		TriggeredAt: now,
		CreatedAt:   now,
	}
	if err := s.funnelRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return &fired{stage: StageDeactivated, record: record}, nil
}

func (s *funnelServiceImpl) afterFired(ctx context.Context, userID uint64, result *fired) {
	metrics.FunnelTransitions.WithLabelValues(string(result.stage)).Inc()
	log.InfoContext(ctx, "funnel stage fired",
		"user_id", userID,
		"stage", result.stage,
		"record_id", result.record.ID,
		"listings", result.listingIDs,
	)

	event := &StageEvent{
		UserID:     userID,
		Stage:      result.stage,
		RecordID:   result.record.ID,
		ListingIDs: result.listingIDs,
	}

	switch result.stage {
	case StageDeactivationWarning:
		deadline := result.record.TriggeredAt.Add(s.grace)
		event.Deadline = deadline
		s.timer.Arm(userID, deadline.Sub(s.now()))
	case StageDeactivated:
		s.timer.Disarm(userID)
		if err := s.userRepo.SetStatus(ctx, userID, consts.UserStatusDeactivated); err != nil {
			log.ErrorContext(ctx, "set account status failed, left for reconcile", "user_id", userID, "err", err)
		}
	}

	s.notifier.StageFired(ctx, event)
}

// ExpireWarning 宽限期到期的检查与停用
func (s *funnelServiceImpl) ExpireWarning(ctx context.Context, userID uint64) error {
	return s.expireWarning(ctx, userID, s.now())
}

func (s *funnelServiceImpl) expireWarning(ctx context.Context, userID uint64, now time.Time) error {
	var result *fired
	var rearm time.Duration

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.scoreRepo.LockByUserID(txCtx, userID); err != nil {
			return err
		}

		deactivated, err := s.funnelRepo.IsDeactivated(txCtx, userID)
		if err != nil {
			return err
		}
		if deactivated {
			return nil
		}

		warning, err := s.funnelRepo.LatestByStage(txCtx, userID, string(StageDeactivationWarning))
		if err != nil {
			return err
		}
		if warning == nil || warning.ActionTaken {
			return nil
		}

		deadline := warning.TriggeredAt.Add(s.grace)
		if now.Before(deadline) {
			rearm = deadline.Sub(now)
			return nil
		}

		// 警告之后有过主动行为但未能及时确认
		acted, err := s.historyRepo.HasActionSince(txCtx, userID, userActionTypes(), warning.TriggeredAt)
		if err != nil {
			return err
		}
		if acted {
			_, err = s.funnelRepo.MarkActionTaken(txCtx, warning.ID, now)
			return err
		}

		result, err = s.recordDeactivation(txCtx, userID, now)
		return err
	})
	if err != nil {
		return err
	}

	if rearm > 0 {
		s.timer.Arm(userID, rearm)
		return nil
	}
	if result != nil {
		s.afterFired(ctx, userID, result)
	}
	return nil
}

func (s *funnelServiceImpl) onTimerFire(userID uint64) {
	traceID := "timer-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	log.InfoContext(ctx, "deactivation timer fired", "user_id", userID)
	if err := s.ExpireWarning(ctx, userID); err != nil {
		log.ErrorContext(ctx, "expire warning failed", "user_id", userID, "err", err)
	}
}

// RestoreTimers 从持久化的 triggered_at 重建定时器，已过期的立即检查
func (s *funnelServiceImpl) RestoreTimers(ctx context.Context, now time.Time) error {
	warnings, err := s.funnelRepo.ListOutstandingWarnings(ctx)
	if err != nil {
		return err
	}

	latest := make(map[uint64]*model.FunnelStage, len(warnings))
	for _, w := range warnings {
		if cur, ok := latest[w.UserID]; !ok || w.TriggeredAt.After(cur.TriggeredAt) {
			latest[w.UserID] = w
		}
	}

	armed, expired := 0, 0
	for userID, w := range latest {
		deadline := w.TriggeredAt.Add(s.grace)
		if deadline.After(now) {
			s.timer.Arm(userID, deadline.Sub(now))
			armed++
			continue
		}
		if err = s.expireWarning(ctx, userID, now); err != nil {
			log.ErrorContext(ctx, "expire overdue warning failed", "user_id", userID, "err", err)
			continue
		}
		expired++
	}

	log.InfoContext(ctx, "deactivation timers restored", "armed", armed, "expired", expired)
	return nil
}

// Reconcile 补偿停用后账号状态同步失败的用户
func (s *funnelServiceImpl) Reconcile(ctx context.Context) error {
	ids, err := s.funnelRepo.ListDeactivatedWithActiveAccount(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err = s.userRepo.SetStatus(ctx, id, consts.UserStatusDeactivated); err != nil {
			log.ErrorContext(ctx, "reconcile account status failed", "user_id", id, "err", err)
			continue
		}
		log.InfoContext(ctx, "account status reconciled", "user_id", id)
	}
	return nil
}

// Acknowledge 用户在界面上对某条召回记录采取行动
func (s *funnelServiceImpl) Acknowledge(ctx context.Context, userID, recordID uint64) error {
	record, err := s.funnelRepo.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if record == nil || record.UserID != userID {
		return ErrFunnelRecordNotFound
	}
	if record.Stage == string(StageDeactivated) && !record.Cleared {
		return ErrUserDeactivated
	}
	if record.ActionTaken || record.Cleared {
		return nil
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.scoreRepo.LockByUserID(txCtx, userID); err != nil {
			return err
		}
		_, err := s.funnelRepo.MarkActionTaken(txCtx, recordID, s.now())
		return err
	})
	if err != nil {
		return err
	}

	if record.Stage == string(StageDeactivationWarning) {
		s.timer.Disarm(userID)
	}
	return nil
}

// ClearStages 需在重新激活的事务内调用
func (s *funnelServiceImpl) ClearStages(ctx context.Context, userID uint64, at time.Time) error {
	return s.funnelRepo.ClearAll(ctx, userID, at)
}

func (s *funnelServiceImpl) OnReactivated(ctx context.Context, userID uint64) error {
	s.timer.Disarm(userID)
	return s.userRepo.SetStatus(ctx, userID, consts.UserStatusActive)
}

func (s *funnelServiceImpl) Shutdown() {
	s.timer.Stop()
}
