package service

import (
	"TradeTalent/internal/api/dto"
	"TradeTalent/internal/model"
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/metrics"
	"TradeTalent/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/jinzhu/copier"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type EngagementService interface {
	RecordAction(ctx context.Context, userID uint64, kind ActionKind) (int, error)
	ApplyDecay(ctx context.Context, userID uint64, now time.Time) (*DecayResult, error)
	GetSnapshot(ctx context.Context, userID uint64, page, pageSize int) (*dto.EngagementSnapshotDTO, error)
	Reactivate(ctx context.Context, userID uint64) error
	GetProfileCompletion(ctx context.Context, userID uint64) (*dto.ProfileCompletionDTO, error)
}

// DecayResult 单个用户的衰减结果
type DecayResult struct {
	Score       int
	ChargedDays int
}

// deltaFunc 在行锁内计算分数变化，可以顺带修改行上的其它字段
type deltaFunc func(row *model.EngagementScore) int

type scoreChange struct {
	score int
	delta int
	// 衰减无需扣分时不写流水
	unchanged bool
}

type engagementServiceImpl struct {
	tx          repository.Transactor
	scoreRepo   repository.EngagementScoreRepo
	historyRepo repository.EngagementHistoryRepo
	funnelRepo  repository.FunnelRepo
	userRepo    repository.UserRepo
	funnel      FunnelService
	now         func() time.Time
}

func NewEngagementService(
	tx repository.Transactor,
	scoreRepo repository.EngagementScoreRepo,
	historyRepo repository.EngagementHistoryRepo,
	funnelRepo repository.FunnelRepo,
	userRepo repository.UserRepo,
	funnel FunnelService,
) EngagementService {
	return &engagementServiceImpl{
		tx:          tx,
		scoreRepo:   scoreRepo,
		historyRepo: historyRepo,
		funnelRepo:  funnelRepo,
		userRepo:    userRepo,
		funnel:      funnel,
		now:         time.Now,
	}
}

// RecordAction 记录一次用户行为并返回新分数
func (s *engagementServiceImpl) RecordAction(ctx context.Context, userID uint64, kind ActionKind) (int, error) {
	if _, ok := actionWeights[kind]; !ok {
		return 0, ErrUnknownAction
	}
	if kind.Synthetic() {
		return 0, ErrActionNotAllowed
	}

	weight := kind.Weight()
	var change *scoreChange
	err := s.withRetry(ctx, userID, kind, func() error {
		var err error
		change, err = s.applyChange(ctx, userID, kind, func(*model.EngagementScore) int {
			return weight
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.notifyFunnel(ctx, userID, kind, change.score)
	return change.score, nil
}

// ApplyDecay 按 last_login 计算尚未扣除的不活跃天数，一次事务扣完
func (s *engagementServiceImpl) ApplyDecay(ctx context.Context, userID uint64, now time.Time) (*DecayResult, error) {
	var change *scoreChange
	err := s.withRetry(ctx, userID, ActionDaysInactive, func() error {
		var err error
		change, err = s.applyChange(ctx, userID, ActionDaysInactive, func(row *model.EngagementScore) int {
			days := InactiveDays(row.LastLogin, now)
			pending := days - row.DecayDaysCharged
			if pending <= 0 {
				return 0
			}
			row.DecayDaysCharged = days
			return pending * ActionDaysInactive.Weight()
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	// 无扣分时同样评估一次漏斗，补上此前提交后失败的阶段处理
	s.notifyFunnel(ctx, userID, ActionDaysInactive, change.score)

	result := &DecayResult{Score: change.score}
	if !change.unchanged {
		result.ChargedDays = -change.delta
	}
	return result, nil
}

// applyChange 单个事务内：锁定或创建分数行、计算并截断分数、写回分数、追加一条流水
func (s *engagementServiceImpl) applyChange(ctx context.Context, userID uint64, kind ActionKind, delta deltaFunc) (*scoreChange, error) {
	var change *scoreChange

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		now := s.now()

		row, err := s.scoreRepo.LockOrCreate(txCtx, userID, now)
		if err != nil {
			return err
		}

		deactivated, err := s.funnelRepo.IsDeactivated(txCtx, userID)
		if err != nil {
			return err
		}
		if deactivated {
			return ErrUserDeactivated
		}

		if row.Score < MinScore || row.Score > MaxScore {
			return fmt.Errorf("%w: user %d has score %d", ErrScoreOutOfRange, userID, row.Score)
		}

		d := delta(row)
		if d == 0 && kind == ActionDaysInactive {
			change = &scoreChange{score: row.Score, unchanged: true}
			return nil
		}

		newScore := ClampScore(row.Score + d)
		row.Score = newScore
		row.UpdatedAt = now
		switch kind {
		case ActionLogin:
			row.LastLogin = now
			row.DecayDaysCharged = 0
		case ActionServicePost:
			row.LastContentPost = &now
		}

		if err = s.scoreRepo.Update(txCtx, row); err != nil {
			return err
		}

		entry := &model.EngagementHistory{
			UserID:      userID,
			ActionType:  string(kind),
			ScoreChange: d,
			ScoreAfter:  newScore,
			CreatedAt:   now,
		}
		if err = s.historyRepo.Append(txCtx, entry); err != nil {
			return err
		}

		change = &scoreChange{score: newScore, delta: d}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// withRetry 临时性失败重试一次，仍失败则包装为 ErrScoreUpdateFailed
func (s *engagementServiceImpl) withRetry(ctx context.Context, userID uint64, kind ActionKind, op func() error) error {
	err := op()
	if err == nil {
		metrics.ScoreUpdates.WithLabelValues(string(kind), "ok").Inc()
		return nil
	}
	if !isTransient(err) {
		metrics.ScoreUpdates.WithLabelValues(string(kind), "rejected").Inc()
		return err
	}

	log.WarnContext(ctx, "score update failed, retrying once",
		"user_id", userID,
		"action", kind,
		"lock_conflict", repository.IsLockConflict(err),
		"err", err,
	)
	if err = op(); err == nil {
		metrics.ScoreUpdates.WithLabelValues(string(kind), "retried").Inc()
		return nil
	}
	if !isTransient(err) {
		metrics.ScoreUpdates.WithLabelValues(string(kind), "rejected").Inc()
		return err
	}

	metrics.ScoreUpdates.WithLabelValues(string(kind), "failed").Inc()
	log.ErrorContext(ctx, "score update dropped after retry", "user_id", userID, "action", kind, "err", err)
	return fmt.Errorf("%w: %w", ErrScoreUpdateFailed, err)
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, ErrUnknownAction),
		errors.Is(err, ErrActionNotAllowed),
		errors.Is(err, ErrUserDeactivated),
		errors.Is(err, ErrScoreOutOfRange),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// notifyFunnel 漏斗在分数提交后独立执行，失败重试一次后只记录日志
func (s *engagementServiceImpl) notifyFunnel(ctx context.Context, userID uint64, kind ActionKind, score int) {
	err := s.funnel.OnScoreChanged(ctx, userID, kind, score)
	if err == nil {
		return
	}
	log.WarnContext(ctx, "funnel evaluation failed, retrying once", "user_id", userID, "score", score, "err", err)
	if err = s.funnel.OnScoreChanged(ctx, userID, kind, score); err != nil {
		log.ErrorContext(ctx, "funnel evaluation failed", "user_id", userID, "score", score, "err", err)
	}
}

// GetSnapshot 只读查询，不创建分数行
func (s *engagementServiceImpl) GetSnapshot(ctx context.Context, userID uint64, page, pageSize int) (*dto.EngagementSnapshotDTO, error) {
	page, pageSize = normalizePage(page, pageSize)

	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	row, err := s.scoreRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	deactivated, err := s.funnelRepo.IsDeactivated(ctx, userID)
	if err != nil {
		return nil, err
	}

	snapshot := &dto.EngagementSnapshotDTO{
		UserID:   userID,
		Score:    repository.BaselineScore,
		Page:     page,
		PageSize: pageSize,
		History:  make([]*dto.EngagementHistoryDTO, 0),
	}
	if row != nil {
		snapshot.Score = row.Score
		snapshot.ProfileCompletion = row.ProfileCompletion
		snapshot.LastLogin = formatTime(&row.LastLogin)
		snapshot.LastContentPost = formatTime(row.LastContentPost)
	}

	snapshot.Stage = string(StageForScore(snapshot.Score))
	if deactivated {
		snapshot.Stage = string(StageDeactivated)
	}

	list, total, err := s.historyRepo.ListByUser(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	snapshot.Total = total
	for _, h := range list {
		d := &dto.EngagementHistoryDTO{}
		_ = copier.Copy(d, h)
		d.CreatedAt = formatTime(&h.CreatedAt)
		snapshot.History = append(snapshot.History, d)
	}

	return snapshot, nil
}

// Reactivate 分数重置为基线，关闭全部漏斗记录，账号恢复为正常
func (s *engagementServiceImpl) Reactivate(ctx context.Context, userID uint64) error {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		now := s.now()

		row, err := s.scoreRepo.LockOrCreate(txCtx, userID, now)
		if err != nil {
			return err
		}

		previous := row.Score
		row.Score = repository.BaselineScore
		row.LastLogin = now
		row.DecayDaysCharged = 0
		row.UpdatedAt = now
		if err = s.scoreRepo.Update(txCtx, row); err != nil {
			return err
		}

		entry := &model.EngagementHistory{
			UserID:      userID,
			ActionType:  string(ActionReactivated),
			ScoreChange: repository.BaselineScore - previous,
			ScoreAfter:  repository.BaselineScore,
			CreatedAt:   now,
		}
		if err = s.historyRepo.Append(txCtx, entry); err != nil {
			return err
		}

		return s.funnel.ClearStages(txCtx, userID, now)
	})
	if err != nil {
		return err
	}

	// 分数与漏斗已提交，账号状态同步失败时可重复调用
	if err = s.funnel.OnReactivated(ctx, userID); err != nil {
		return err
	}
	log.InfoContext(ctx, "user reactivated", "user_id", userID)
	return nil
}

// GetProfileCompletion 五项资料各占 20%
func (s *engagementServiceImpl) GetProfileCompletion(ctx context.Context, userID uint64) (*dto.ProfileCompletionDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	fields := []struct {
		name   string
		filled bool
	}{
		{"username", user.Username != ""},
		{"email", user.Email != ""},
		{"avatar_url", user.AvatarURL != "" && user.AvatarURL != consts.DefaultAvatarURL},
		{"bio", user.Bio != ""},
		{"skills", len(user.Skills) > 0},
	}

	res := &dto.ProfileCompletionDTO{UserID: userID, Missing: make([]string, 0)}
	filled := 0
	for _, f := range fields {
		if f.filled {
			filled++
		} else {
			res.Missing = append(res.Missing, f.name)
		}
	}
	res.Percentage = filled * 100 / len(fields)

	if err = s.scoreRepo.UpdateProfileCompletion(ctx, userID, res.Percentage); err != nil {
		log.WarnContext(ctx, "save profile completion failed", "user_id", userID, "err", err)
	}
	return res, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
