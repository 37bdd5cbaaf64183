package model

import (
	"time"
)

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"type:varchar(50);uniqueIndex:idx_username"`
	Email     string `gorm:"type:varchar(100);uniqueIndex:idx_email"`
	AvatarURL string `gorm:"type:varchar(255)"`
	Bio       string `gorm:"type:text"`
	Status    string `gorm:"type:varchar(20);not null;default:active;index:idx_user_status"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Skills []UserSkill `gorm:"foreignKey:UserID;references:ID"`
}

func (User) TableName() string {
	return "users"
}
