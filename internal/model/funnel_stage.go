package model

import "time"

// FunnelStage 召回漏斗阶段记录
type FunnelStage struct {
	ID            uint64    `gorm:"primaryKey"`
	UserID        uint64    `gorm:"not null;index:idx_funnel_user_stage,priority:1"`
	Stage         string    `gorm:"type:varchar(40);not null;index:idx_funnel_user_stage,priority:2"`
	TriggeredAt   time.Time `gorm:"not null;index:idx_funnel_user_stage,priority:3"`
	ActionTaken   bool      `gorm:"not null;default:false"`
	ActionTakenAt *time.Time
	// 重新激活后置为 true，冷却与停用判断都忽略这些记录
	Cleared   bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (FunnelStage) TableName() string {
	return "re_engagement_funnel"
}
