package repository

import (
	"TradeTalent/internal/model"
	"TradeTalent/internal/pkg/consts"
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type FunnelRepo interface {
	Create(ctx context.Context, record *model.FunnelStage) error
	GetByID(ctx context.Context, id uint64) (*model.FunnelStage, error)
	LatestByStage(ctx context.Context, userID uint64, stage string) (*model.FunnelStage, error)
	IsDeactivated(ctx context.Context, userID uint64) (bool, error)
	AcknowledgeOutstanding(ctx context.Context, userID uint64, stage string, at time.Time) (int64, error)
	MarkActionTaken(ctx context.Context, id uint64, at time.Time) (int64, error)
	ClearAll(ctx context.Context, userID uint64, at time.Time) error
	ListOutstandingWarnings(ctx context.Context) ([]*model.FunnelStage, error)
	ListByUser(ctx context.Context, userID uint64, limit int) ([]*model.FunnelStage, error)
	ListDeactivatedWithActiveAccount(ctx context.Context) ([]uint64, error)
}

type funnelRepoImpl struct {
	db *gorm.DB
}

func NewFunnelRepo(db *gorm.DB) FunnelRepo {
	return &funnelRepoImpl{db: db}
}

func (s *funnelRepoImpl) Create(ctx context.Context, record *model.FunnelStage) error {
	if err := getDB(ctx, s.db).Create(record).Error; err != nil {
		return errors.Wrap(err, "create funnel stage")
	}
	return nil
}

func (s *funnelRepoImpl) GetByID(ctx context.Context, id uint64) (*model.FunnelStage, error) {
	var record model.FunnelStage
	if err := getDB(ctx, s.db).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// LatestByStage 最近一次未清除的指定阶段记录
func (s *funnelRepoImpl) LatestByStage(ctx context.Context, userID uint64, stage string) (*model.FunnelStage, error) {
	var record model.FunnelStage
	err := getDB(ctx, s.db).
		Where("user_id = ? AND stage = ? AND cleared = ?", userID, stage, false).
		Order("triggered_at DESC").
		Order("id DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "latest funnel stage")
	}
	return &record, nil
}

func (s *funnelRepoImpl) IsDeactivated(ctx context.Context, userID uint64) (bool, error) {
	var count int64
	err := getDB(ctx, s.db).
		Model(&model.FunnelStage{}).
		Where("user_id = ? AND stage = ? AND cleared = ?", userID, consts.FunnelStageDeactivated, false).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check deactivated")
	}
	return count > 0, nil
}

// AcknowledgeOutstanding 将该阶段所有未处理记录标记为已行动，返回影响行数
func (s *funnelRepoImpl) AcknowledgeOutstanding(ctx context.Context, userID uint64, stage string, at time.Time) (int64, error) {
	result := getDB(ctx, s.db).
		Model(&model.FunnelStage{}).
		Where("user_id = ? AND stage = ? AND action_taken = ? AND cleared = ?", userID, stage, false, false).
		Updates(map[string]interface{}{
			"action_taken":    true,
			"action_taken_at": at,
		})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "acknowledge funnel stage")
	}
	return result.RowsAffected, nil
}

func (s *funnelRepoImpl) MarkActionTaken(ctx context.Context, id uint64, at time.Time) (int64, error) {
	result := getDB(ctx, s.db).
		Model(&model.FunnelStage{}).
		Where("id = ? AND action_taken = ?", id, false).
		Updates(map[string]interface{}{
			"action_taken":    true,
			"action_taken_at": at,
		})
	return result.RowsAffected, result.Error
}

// ClearAll 重新激活时关闭该用户所有记录，行本身保留
func (s *funnelRepoImpl) ClearAll(ctx context.Context, userID uint64, at time.Time) error {
	err := getDB(ctx, s.db).
		Model(&model.FunnelStage{}).
		Where("user_id = ? AND cleared = ?", userID, false).
		Updates(map[string]interface{}{
			"cleared":         true,
			"action_taken":    true,
			"action_taken_at": gorm.Expr("COALESCE(action_taken_at, ?)", at),
		}).Error
	if err != nil {
		return errors.Wrap(err, "clear funnel stages")
	}
	return nil
}

// ListOutstandingWarnings 未处理的停用警告，已停用用户除外
func (s *funnelRepoImpl) ListOutstandingWarnings(ctx context.Context) ([]*model.FunnelStage, error) {
	list := make([]*model.FunnelStage, 0)
	deactivated := getDB(ctx, s.db).
		Model(&model.FunnelStage{}).
		Select("user_id").
		Where("stage = ? AND cleared = ?", consts.FunnelStageDeactivated, false)

	err := getDB(ctx, s.db).
		Where("stage = ? AND action_taken = ? AND cleared = ?", consts.FunnelStageDeactivationWarning, false, false).
		Where("user_id NOT IN (?)", deactivated).
		Order("triggered_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, errors.Wrap(err, "list outstanding warnings")
	}
	return list, nil
}

func (s *funnelRepoImpl) ListByUser(ctx context.Context, userID uint64, limit int) ([]*model.FunnelStage, error) {
	list := make([]*model.FunnelStage, 0)
	err := getDB(ctx, s.db).
		Where("user_id = ?", userID).
		Order("triggered_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListDeactivatedWithActiveAccount 漏斗已停用但账号状态未同步的用户
func (s *funnelRepoImpl) ListDeactivatedWithActiveAccount(ctx context.Context) ([]uint64, error) {
	ids := make([]uint64, 0)
	err := getDB(ctx, s.db).
		Table("re_engagement_funnel AS f").
		Joins("JOIN users AS u ON u.id = f.user_id").
		Where("f.stage = ? AND f.cleared = ?", consts.FunnelStageDeactivated, false).
		Where("u.status <> ?", consts.UserStatusDeactivated).
		Distinct().
		Pluck("f.user_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "list unsynced deactivations")
	}
	return ids, nil
}
