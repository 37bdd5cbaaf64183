package repository

import (
	"TradeTalent/internal/model"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type SuggestionRepo interface {
	Create(ctx context.Context, suggestion *model.MatchSuggestion) error
	ListByUser(ctx context.Context, userID uint64, limit int) ([]*model.MatchSuggestion, error)
	MarkViewed(ctx context.Context, id, userID uint64) (bool, error)
}

type suggestionRepoImpl struct {
	db *gorm.DB
}

func NewSuggestionRepo(db *gorm.DB) SuggestionRepo {
	return &suggestionRepoImpl{db: db}
}

func (s *suggestionRepoImpl) Create(ctx context.Context, suggestion *model.MatchSuggestion) error {
	if err := getDB(ctx, s.db).Create(suggestion).Error; err != nil {
		return errors.Wrap(err, "create match suggestion")
	}
	return nil
}

func (s *suggestionRepoImpl) ListByUser(ctx context.Context, userID uint64, limit int) ([]*model.MatchSuggestion, error) {
	list := make([]*model.MatchSuggestion, 0)
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
func (s *suggestionRepoImpl) MarkViewed(ctx context.Context, id, userID uint64) (bool, error) {
	db := getDB(ctx, s.db)
	var count int64
	err := db.Model(&model.MatchSuggestion{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}

	err = db.Model(&model.MatchSuggestion{}).
		Where("id = ? AND is_viewed = ?", id, false).
		Update("is_viewed", true).Error
	if err != nil {
		return false, errors.Wrap(err, "mark suggestion viewed")
	}
	return true, nil
}
