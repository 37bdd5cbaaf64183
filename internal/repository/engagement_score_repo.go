package repository

import (
	"TradeTalent/internal/model"
	"TradeTalent/internal/pkg/consts"
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BaselineScore 首次计分时的初始分数
const BaselineScore = 100

type EngagementScoreRepo interface {
	LockOrCreate(ctx context.Context, userID uint64, now time.Time) (*model.EngagementScore, error)
	LockByUserID(ctx context.Context, userID uint64) (*model.EngagementScore, error)
	GetByUserID(ctx context.Context, userID uint64) (*model.EngagementScore, error)
	Update(ctx context.Context, score *model.EngagementScore) error
	UpdateProfileCompletion(ctx context.Context, userID uint64, percentage int) error
	ListActiveUserIDs(ctx context.Context, afterID uint64, limit int) ([]uint64, error)
}

type engagementScoreRepoImpl struct {
	db *gorm.DB
}

func NewEngagementScoreRepo(db *gorm.DB) EngagementScoreRepo {
	return &engagementScoreRepoImpl{db: db}
}

// LockOrCreate 不存在时以基线分插入，随后 SELECT ... FOR UPDATE 锁定该行
func (s *engagementScoreRepoImpl) LockOrCreate(ctx context.Context, userID uint64, now time.Time) (*model.EngagementScore, error) {
	db := getDB(ctx, s.db)

	baseline := &model.EngagementScore{
		UserID:    userID,
		Score:     BaselineScore,
		LastLogin: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(baseline).Error; err != nil {
		return nil, errors.Wrap(err, "init engagement score")
	}

	var row model.EngagementScore
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&row).Error
	if err != nil {
		return nil, errors.Wrap(err, "lock engagement score")
	}
	return &row, nil
}

// LockByUserID 只加锁不创建，行不存在时返回 nil
func (s *engagementScoreRepoImpl) LockByUserID(ctx context.Context, userID uint64) (*model.EngagementScore, error) {
	var row model.EngagementScore
	err := getDB(ctx, s.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "lock engagement score")
	}
	return &row, nil
}

func (s *engagementScoreRepoImpl) GetByUserID(ctx context.Context, userID uint64) (*model.EngagementScore, error) {
	var row model.EngagementScore
	err := getDB(ctx, s.db).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (s *engagementScoreRepoImpl) Update(ctx context.Context, score *model.EngagementScore) error {
	result := getDB(ctx, s.db).
		Model(&model.EngagementScore{}).
		Where("id = ?", score.ID).
		Updates(map[string]interface{}{
			"score":              score.Score,
			"last_login":         score.LastLogin,
			"last_content_post":  score.LastContentPost,
			"decay_days_charged": score.DecayDaysCharged,
			"updated_at":         score.UpdatedAt,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "update engagement score")
	}
	return nil
}

func (s *engagementScoreRepoImpl) UpdateProfileCompletion(ctx context.Context, userID uint64, percentage int) error {
	return getDB(ctx, s.db).
		Model(&model.EngagementScore{}).
		Where("user_id = ?", userID).
		Update("profile_completion", percentage).Error
}

// ListActiveUserIDs 按 user_id 游标分页，过滤已停用账号
func (s *engagementScoreRepoImpl) ListActiveUserIDs(ctx context.Context, afterID uint64, limit int) ([]uint64, error) {
	ids := make([]uint64, 0, limit)
	err := getDB(ctx, s.db).
		Table("user_engagement_scores AS s").
		Joins("JOIN users AS u ON u.id = s.user_id").
		Where("u.status <> ?", consts.UserStatusDeactivated).
		Where("s.user_id > ?", afterID).
		Order("s.user_id ASC").
		Limit(limit).
		Pluck("s.user_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "list active users")
	}
	return ids, nil
}
