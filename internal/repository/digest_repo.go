package repository

import (
	"TradeTalent/internal/model"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type DigestRepo interface {
	Create(ctx context.Context, digest *model.MissedOpportunitiesDigest) error
	ListByUser(ctx context.Context, userID uint64, limit int) ([]*model.MissedOpportunitiesDigest, error)
	MarkViewed(ctx context.Context, id, userID uint64) (bool, error)
}

type digestRepoImpl struct {
	db *gorm.DB
}

func NewDigestRepo(db *gorm.DB) DigestRepo {
	return &digestRepoImpl{db: db}
}

func (s *digestRepoImpl) Create(ctx context.Context, digest *model.MissedOpportunitiesDigest) error {
	if err := getDB(ctx, s.db).Create(digest).Error; err != nil {
		return errors.Wrap(err, "create missed opportunities digest")
	}
	return nil
}

func (s *digestRepoImpl) ListByUser(ctx context.Context, userID uint64, limit int) ([]*model.MissedOpportunitiesDigest, error) {
	list := make([]*model.MissedOpportunitiesDigest, 0)
	err := getDB(ctx, s.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// MarkViewed 记录不属于该用户时返回 false
func (s *digestRepoImpl) MarkViewed(ctx context.Context, id, userID uint64) (bool, error) {
	db := getDB(ctx, s.db)
	var count int64
	err := db.Model(&model.MissedOpportunitiesDigest{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}

	err = db.Model(&model.MissedOpportunitiesDigest{}).
		Where("id = ? AND is_viewed = ?", id, false).
		Update("is_viewed", true).Error
	if err != nil {
		return false, errors.Wrap(err, "mark digest viewed")
	}
	return true, nil
}
