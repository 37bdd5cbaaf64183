package consts

const (
	UserStatusActive      = "active"
	UserStatusDeactivated = "deactivated"
)

const (
	ListingStatusActive    = "active"
	ListingStatusInactive  = "inactive"
	ListingStatusCompleted = "completed"
)

// 系统通知类型
const (
	SysBoxTypeNudge               int8 = 11
	SysBoxTypeMissedOpportunities int8 = 12
	SysBoxTypeDeactivationWarning int8 = 13
	SysBoxTypeDeactivated         int8 = 14
)

const (
	RoleAdmin   = "ADMIN"
	RoleService = "SERVICE"
)

// 召回漏斗阶段
const (
	FunnelStageEngaged             = "ENGAGED"
	FunnelStageNudge               = "NUDGE"
	FunnelStageMissedOpportunities = "MISSED_OPPORTUNITIES"
	FunnelStageDeactivationWarning = "DEACTIVATION_WARNING"
	FunnelStageDeactivated         = "DEACTIVATED"
)

const (
	DefaultAvatarURL = "default_avatar.png"
)
