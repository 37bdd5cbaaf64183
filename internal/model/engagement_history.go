package model

import "time"

// EngagementHistory 分数变更流水，只追加
type EngagementHistory struct {
	ID          uint64    `gorm:"primaryKey"`
	UserID      uint64    `gorm:"not null;index:idx_history_user_created,priority:1"`
	ActionType  string    `gorm:"type:varchar(50);not null"`
	ScoreChange int       `gorm:"type:int;not null"`
	ScoreAfter  int       `gorm:"type:int;not null"`
	CreatedAt   time.Time `gorm:"index:idx_history_user_created,priority:2"`
}

func (EngagementHistory) TableName() string {
	return "user_engagement_history"
}
