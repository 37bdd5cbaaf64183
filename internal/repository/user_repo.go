package repository

import (
	"TradeTalent/internal/model"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UserRepo interface {
	GetUserById(ctx context.Context, id uint64) (*model.User, error)
	GetSkillCategories(ctx context.Context, id uint64) ([]string, error)
	SetStatus(ctx context.Context, id uint64, status string) error
}

type UserRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &UserRepoImpl{db: db}
}

func (s *UserRepoImpl) GetUserById(ctx context.Context, id uint64) (*model.User, error) {
	user := &model.User{}
	result := getDB(ctx, s.db).
		Preload("Skills").
		First(user, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return user, nil
}

func (s *UserRepoImpl) GetSkillCategories(ctx context.Context, id uint64) ([]string, error) {
	categories := make([]string, 0)
	err := getDB(ctx, s.db).
		Model(&model.UserSkill{}).
		Where("user_id = ?", id).
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// SetStatus 更新账号状态
func (s *UserRepoImpl) SetStatus(ctx context.Context, id uint64, status string) error {
	result := getDB(ctx, s.db).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return errors.Wrap(result.Error, "set account status")
	}
	return nil
}
