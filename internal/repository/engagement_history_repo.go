package repository

import (
	"TradeTalent/internal/model"
	"context"
	"slices"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type EngagementHistoryRepo interface {
	Append(ctx context.Context, entry *model.EngagementHistory) error
	ListByUser(ctx context.Context, userID uint64, offset, limit int) ([]*model.EngagementHistory, int64, error)
	HasActionSince(ctx context.Context, userID uint64, actionTypes []string, since time.Time) (bool, error)
}

type engagementHistoryRepoImpl struct {
	db *gorm.DB
}

func NewEngagementHistoryRepo(db *gorm.DB) EngagementHistoryRepo {
	return &engagementHistoryRepoImpl{db: db}
}

func (s *engagementHistoryRepoImpl) Append(ctx context.Context, entry *model.EngagementHistory) error {
	if err := getDB(ctx, s.db).Create(entry).Error; err != nil {
		return errors.Wrap(err, "append engagement history")
	}
	return nil
}

// ListByUser 从最近的记录开始分页，页内按 created_at 升序返回
func (s *engagementHistoryRepoImpl) ListByUser(ctx context.Context, userID uint64, offset, limit int) ([]*model.EngagementHistory, int64, error) {
	query := func() *gorm.DB {
		return getDB(ctx, s.db).Model(&model.EngagementHistory{}).Where("user_id = ?", userID)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	list := make([]*model.EngagementHistory, 0, limit)
	err := query().Order("created_at DESC").Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	slices.Reverse(list)
	return list, total, nil
}

// HasActionSince since 之后（不含）是否出现过指定类型的行为
func (s *engagementHistoryRepoImpl) HasActionSince(ctx context.Context, userID uint64, actionTypes []string, since time.Time) (bool, error) {
	var count int64
	err := getDB(ctx, s.db).
		Model(&model.EngagementHistory{}).
		Where("user_id = ? AND action_type IN ? AND created_at > ?", userID, actionTypes, since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
