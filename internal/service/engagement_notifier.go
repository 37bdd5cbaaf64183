package service

import (
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/mail"
	"TradeTalent/internal/pkg/mongo"
	"TradeTalent/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"time"
)

// StageEvent 漏斗阶段触发后的通知事件
type StageEvent struct {
	UserID     uint64
	Stage      Stage
	RecordID   uint64
	ListingIDs []uint64
	Deadline   time.Time
}

// EngagementNotifier 通知失败只记日志，不影响阶段记录
type EngagementNotifier interface {
	StageFired(ctx context.Context, event *StageEvent)
}

type engagementNotifierImpl struct {
	sysBoxRepo mongo.SysBoxRepo
	mailClient mail.Client
	userRepo   repository.UserRepo
	now        func() time.Time
}

func NewEngagementNotifier(sysBox mongo.SysBoxRepo, mailClient mail.Client, userRepo repository.UserRepo) EngagementNotifier {
	return &engagementNotifierImpl{
		sysBoxRepo: sysBox,
		mailClient: mailClient,
		userRepo:   userRepo,
		now:        time.Now,
	}
}

func (s *engagementNotifierImpl) StageFired(ctx context.Context, event *StageEvent) {
	msgType, content, subject := describeStage(event)
	if msgType == 0 {
		return
	}

	payload := map[string]any{"stage": string(event.Stage)}
	if len(event.ListingIDs) > 0 {
		payload["service_ids"] = event.ListingIDs
	}
	if !event.Deadline.IsZero() {
		payload["deadline"] = event.Deadline.UTC().Format(time.RFC3339)
	}

	notice := &mongo.SysBoxModel{
		ReceiverID: event.UserID,
		Type:       msgType,
		TargetID:   event.RecordID,
		Content:    content,
		Payload:    payload,
		CreatedAt:  s.now(),
	}
	if err := s.sysBoxRepo.CreateNotification(ctx, notice); err != nil {
		log.ErrorContext(ctx, "create sysbox notification failed", "user_id", event.UserID, "stage", event.Stage, "err", err)
	}

	// 站内信必发，邮件只在警告和停用时发送
	if subject == "" {
		return
	}
	user, err := s.userRepo.GetUserById(ctx, event.UserID)
	if err != nil || user == nil || user.Email == "" {
		log.WarnContext(ctx, "skip engagement mail, no address", "user_id", event.UserID, "err", err)
		return
	}
	err = s.mailClient.Send(ctx, &mail.Message{
		To:      user.Email,
		Subject: subject,
		Body:    fmt.Sprintf("%s，%s", user.Username, content),
	})
	if err != nil {
		log.ErrorContext(ctx, "send engagement mail failed", "user_id", event.UserID, "stage", event.Stage, "err", err)
	}
}

func describeStage(event *StageEvent) (int8, string, string) {
	switch event.Stage {
	case StageNudge:
		if len(event.ListingIDs) == 0 {
			return consts.SysBoxTypeNudge, "好久不见，来看看最近有哪些新服务吧", ""
		}
		return consts.SysBoxTypeNudge, "我们为你找到了一个可能感兴趣的服务", ""
	case StageMissedOpportunities:
		return consts.SysBoxTypeMissedOpportunities, fmt.Sprintf("你错过了 %d 个热门服务", len(event.ListingIDs)), ""
	case StageDeactivationWarning:
		content := fmt.Sprintf("你的账号长期不活跃，将于 %s 前停用，登录或发布服务即可保留账号",
			event.Deadline.UTC().Format(time.DateOnly))
		return consts.SysBoxTypeDeactivationWarning, content, "账号即将停用"
	case StageDeactivated:
		return consts.SysBoxTypeDeactivated, "你的账号因长期不活跃已被停用，如需恢复请联系客服", "账号已停用"
	default:
		return 0, "", ""
	}
}
