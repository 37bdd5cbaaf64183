package model

// UserSkill 用户声明的技能类目
type UserSkill struct {
	ID       uint64 `gorm:"primaryKey"`
	UserID   uint64 `gorm:"not null;uniqueIndex:idx_user_skill,priority:1"`
	Category string `gorm:"type:varchar(50);not null;uniqueIndex:idx_user_skill,priority:2"`
}

func (UserSkill) TableName() string {
	return "user_skills"
}
