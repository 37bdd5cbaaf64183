package dto

// RecordActionDTO 上报计分行为
type RecordActionDTO struct {
	UserID uint64 `json:"user_id" validate:"required,gt=0"`
	Action string `json:"action" validate:"required,max=50"`
}

// RecordActionResultDTO 计分结果
type RecordActionResultDTO struct {
	UserID uint64 `json:"user_id"`
	Score  int    `json:"score"`
	Stage  string `json:"stage"`
}

type PageQueryDTO struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"page_size" validate:"omitempty,min=1,max=100"`
}

type EngagementHistoryDTO struct {
	ID          uint64 `json:"id"`
	ActionType  string `json:"action_type"`
	ScoreChange int    `json:"score_change"`
	ScoreAfter  int    `json:"score_after"`
	CreatedAt   string `json:"created_at"`
}

// EngagementSnapshotDTO 活跃度快照
type EngagementSnapshotDTO struct {
	UserID            uint64                  `json:"user_id"`
	Score             int                     `json:"score"`
	Stage             string                  `json:"stage"`
	ProfileCompletion int                     `json:"profile_completion"`
	LastLogin         string                  `json:"last_login,omitempty"`
	LastContentPost   string                  `json:"last_content_post,omitempty"`
	History           []*EngagementHistoryDTO `json:"history"`
	Total             int64                   `json:"total"`
	Page              int                     `json:"page"`
	PageSize          int                     `json:"page_size"`
}

type FunnelStageDTO struct {
	ID            uint64 `json:"id"`
	Stage         string `json:"stage"`
	TriggeredAt   string `json:"triggered_at"`
	ActionTaken   bool   `json:"action_taken"`
	ActionTakenAt string `json:"action_taken_at,omitempty"`
	Cleared       bool   `json:"cleared"`
	// 仅停用警告：宽限期截止时间
	Deadline string `json:"deadline,omitempty"`
}

type MatchSuggestionDTO struct {
	ID                 uint64  `json:"id"`
	SuggestedServiceID uint64  `json:"suggested_service_id"`
	Title              string  `json:"title"`
	Category           string  `json:"category"`
	Rating             float64 `json:"rating"`
	MatchScore         float64 `json:"match_score"`
	IsViewed           bool    `json:"is_viewed"`
	CreatedAt          string  `json:"created_at"`
}

type MissedOpportunitiesDTO struct {
	ID         uint64   `json:"id"`
	ServiceIDs []uint64 `json:"service_ids"`
	IsViewed   bool     `json:"is_viewed"`
	CreatedAt  string   `json:"created_at"`
}

type ProfileCompletionDTO struct {
	UserID     uint64   `json:"user_id"`
	Percentage int      `json:"percentage"`
	Missing    []string `json:"missing"`
}
