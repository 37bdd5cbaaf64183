package model

import "time"

// ServiceListing 技能服务挂单
type ServiceListing struct {
	ID           uint64    `gorm:"primaryKey"`
	UserID       uint64    `gorm:"not null;index:idx_listing_owner"`
	Title        string    `gorm:"type:varchar(255);not null"`
	Description  string    `gorm:"type:text"`
	Category     string    `gorm:"type:varchar(50);not null;index:idx_listing_category"`
	Status       string    `gorm:"type:varchar(20);not null;default:active;index:idx_listing_status"`
	Rating       float64   `gorm:"type:decimal(3,2);not null;default:0"`
	ReviewsCount int       `gorm:"type:int;not null;default:0"`
	CreatedAt    time.Time `gorm:"index:idx_listing_created"`
	UpdatedAt    time.Time
}

func (ServiceListing) TableName() string {
	return "services"
}
