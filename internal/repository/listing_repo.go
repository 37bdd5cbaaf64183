package repository

import (
	"TradeTalent/internal/model"
	"TradeTalent/internal/pkg/consts"
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ListingRepo interface {
	GetByID(ctx context.Context, id uint64) (*model.ServiceListing, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]*model.ServiceListing, error)
	BestMatch(ctx context.Context, userID uint64, categories []string) (*model.ServiceListing, error)
	NewSince(ctx context.Context, userID uint64, since time.Time, limit int) ([]*model.ServiceListing, error)
	CategoriesOfOwner(ctx context.Context, userID uint64) ([]string, error)
}

type listingRepoImpl struct {
	db *gorm.DB
}

func NewListingRepo(db *gorm.DB) ListingRepo {
	return &listingRepoImpl{db: db}
}

func (s *listingRepoImpl) GetByID(ctx context.Context, id uint64) (*model.ServiceListing, error) {
	var listing model.ServiceListing
	if err := getDB(ctx, s.db).First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

func (s *listingRepoImpl) GetByIDs(ctx context.Context, ids []uint64) ([]*model.ServiceListing, error) {
	list := make([]*model.ServiceListing, 0, len(ids))
	if len(ids) == 0 {
		return list, nil
	}
	if err := getDB(ctx, s.db).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// BestMatch 类目内评分最高、评价最多、最新的他人在售服务；categories 为空时不限类目
func (s *listingRepoImpl) BestMatch(ctx context.Context, userID uint64, categories []string) (*model.ServiceListing, error) {
	db := getDB(ctx, s.db).
		Where("status = ? AND user_id <> ?", consts.ListingStatusActive, userID)
	if len(categories) > 0 {
		db = db.Where("category IN ?", categories)
	}

	var listing model.ServiceListing
	err := db.Order("rating DESC").
		Order("reviews_count DESC").
		Order("created_at DESC").
		Order("id DESC").
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "best match listing")
	}
	return &listing, nil
}

// NewSince since 之后上架的他人在售服务
func (s *listingRepoImpl) NewSince(ctx context.Context, userID uint64, since time.Time, limit int) ([]*model.ServiceListing, error) {
	list := make([]*model.ServiceListing, 0, limit)
	err := getDB(ctx, s.db).
		Where("status = ? AND user_id <> ? AND created_at > ?", consts.ListingStatusActive, userID, since).
		Order("rating DESC").
		Order("reviews_count DESC").
		Order("id DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, errors.Wrap(err, "list new listings")
	}
	return list, nil
}

func (s *listingRepoImpl) CategoriesOfOwner(ctx context.Context, userID uint64) ([]string, error) {
	categories := make([]string, 0)
	err := getDB(ctx, s.db).
		Model(&model.ServiceListing{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}
