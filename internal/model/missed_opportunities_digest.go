package model

import (
	"time"

	"gorm.io/datatypes"
)

type MissedOpportunitiesDigest struct {
	ID         uint64         `gorm:"primaryKey"`
	UserID     uint64         `gorm:"not null;index:idx_digest_user"`
	ServiceIDs datatypes.JSON `gorm:"column:service_ids;not null"`
	IsViewed   bool           `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

func (MissedOpportunitiesDigest) TableName() string {
	return "missed_opportunities_digest"
}
