package model

import "time"

// EngagementScore 用户活跃度分数，每个用户一行
type EngagementScore struct {
	ID                uint64 `gorm:"primaryKey"`
	UserID            uint64 `gorm:"not null;uniqueIndex:idx_engagement_user"`
	Score             int    `gorm:"type:int;not null"`
	ProfileCompletion int    `gorm:"type:int;not null;default:0"`
	LastLogin         time.Time
	LastContentPost   *time.Time
	// 自 LastLogin 起已经扣过分的不活跃天数
	DecayDaysCharged int `gorm:"type:int;not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (EngagementScore) TableName() string {
	return "user_engagement_scores"
}
