package model

import "time"

type MatchSuggestion struct {
	ID                 uint64  `gorm:"primaryKey"`
	UserID             uint64  `gorm:"not null;index:idx_suggestion_user"`
	SuggestedServiceID uint64  `gorm:"not null"`
	MatchScore         float64 `gorm:"type:decimal(3,2);not null"`
	IsViewed           bool    `gorm:"not null;default:false"`
	CreatedAt          time.Time
}

func (MatchSuggestion) TableName() string {
	return "ai_matchmaking_suggestions"
}
