package service

import (
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/repository"
	"time"
)

// ActionKind 计分行为
type ActionKind string

const (
	ActionLogin             ActionKind = "LOGIN"
	ActionServicePost       ActionKind = "SERVICE_POST"
	ActionMessageSent       ActionKind = "MESSAGE_SENT"
	ActionProfileUpdate     ActionKind = "PROFILE_UPDATE"
	ActionPositiveReview    ActionKind = "POSITIVE_REVIEW_RECEIVED"
	ActionMessageIgnored    ActionKind = "MESSAGE_IGNORED"
	ActionProfileIncomplete ActionKind = "PROFILE_INCOMPLETE"
	ActionDaysInactive      ActionKind = "DAYS_INACTIVE"
	ActionReactivated       ActionKind = "REACTIVATED"
)

var actionWeights = map[ActionKind]int{
	ActionLogin:             5,
	ActionServicePost:       10,
	ActionMessageSent:       3,
	ActionProfileUpdate:     5,
	ActionPositiveReview:    8,
	ActionMessageIgnored:    -2,
	ActionProfileIncomplete: -5,
	ActionDaysInactive:      -1, // 按天计，由衰减任务乘以天数
}

// ParseActionKind 只接受权重表中的行为
func ParseActionKind(raw string) (ActionKind, error) {
	kind := ActionKind(raw)
	if _, ok := actionWeights[kind]; !ok {
		return "", ErrUnknownAction
	}
	return kind, nil
}

func (k ActionKind) Weight() int {
	return actionWeights[k]
}

// Synthetic 由系统生成、不能从外部上报的行为
func (k ActionKind) Synthetic() bool {
	return k == ActionDaysInactive || k == ActionReactivated
}

// IsUserAction 用户主动行为，可以解除停用警告
func (k ActionKind) IsUserAction() bool {
	switch k {
	case ActionLogin, ActionServicePost, ActionMessageSent, ActionProfileUpdate, ActionPositiveReview:
		return true
	default:
		return false
	}
}

func userActionTypes() []string {
	return []string{
		string(ActionLogin),
		string(ActionServicePost),
		string(ActionMessageSent),
		string(ActionProfileUpdate),
		string(ActionPositiveReview),
	}
}

const (
	MinScore = 0
	MaxScore = repository.BaselineScore

	nudgeThreshold   = 70
	missedThreshold  = 50
	warningThreshold = 30

	// GracePeriod 停用警告后的宽限期
	GracePeriod = 7 * 24 * time.Hour

	matchScore = 0.8
	digestSize = 3
)

func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// InactiveDays 向下取整的不活跃天数
func InactiveDays(lastLogin, now time.Time) int {
	if !now.After(lastLogin) {
		return 0
	}
	return int(now.Sub(lastLogin) / (24 * time.Hour))
}

// Stage 漏斗阶段，按严重程度递增
type Stage string

const (
	StageEngaged             Stage = consts.FunnelStageEngaged
	StageNudge               Stage = consts.FunnelStageNudge
	StageMissedOpportunities Stage = consts.FunnelStageMissedOpportunities
	StageDeactivationWarning Stage = consts.FunnelStageDeactivationWarning
	StageDeactivated         Stage = consts.FunnelStageDeactivated
)

func StageForScore(score int) Stage {
	switch {
	case score > nudgeThreshold:
		return StageEngaged
	case score > missedThreshold:
		return StageNudge
	case score > warningThreshold:
		return StageMissedOpportunities
	case score > MinScore:
		return StageDeactivationWarning
	default:
		return StageDeactivated
	}
}

// Cooldown 同一阶段两次触发的最小间隔
func (s Stage) Cooldown() time.Duration {
	switch s {
	case StageNudge:
		return 7 * 24 * time.Hour
	case StageMissedOpportunities:
		return 14 * 24 * time.Hour
	case StageDeactivationWarning:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

func (s Stage) Severity() int {
	switch s {
	case StageNudge:
		return 1
	case StageMissedOpportunities:
		return 2
	case StageDeactivationWarning:
		return 3
	case StageDeactivated:
		return 4
	default:
		return 0
	}
}
