package database

import (
	"TradeTalent/internal/model"
	log "log/slog"

	"gorm.io/gorm"
)

// AutoMigrate 建表及索引
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.UserSkill{},
		&model.ServiceListing{},
		&model.EngagementScore{},
		&model.EngagementHistory{},
		&model.FunnelStage{},
		&model.MatchSuggestion{},
		&model.MissedOpportunitiesDigest{},
	)
	if err != nil {
		return err
	}
	log.Info("Database schema migrated.")
	return nil
}
