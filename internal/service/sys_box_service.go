package service

import (
	"TradeTalent/internal/api/dto"
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/mongo"
	"context"
	"errors"
	"time"

	"github.com/jinzhu/copier"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

type SysBoxService interface {
	GetNotificationList(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.SysBoxDTO, error)
	GetUnreadCount(ctx context.Context, userID uint64) (*dto.SysBoxUnreadDTO, error)
	MarkRead(ctx context.Context, userID uint64, msgID string) error
	MarkAllRead(ctx context.Context, userID uint64) error
}

// 召回通知按类型区分发送方
var noticeSenders = map[int8]string{
	consts.SysBoxTypeNudge:               "服务推荐",
	consts.SysBoxTypeMissedOpportunities: "服务推荐",
	consts.SysBoxTypeDeactivationWarning: "账号中心",
	consts.SysBoxTypeDeactivated:         "账号中心",
}

type sysBoxServiceImpl struct {
	sysBoxRepo mongo.SysBoxRepo
	now        func() time.Time
}

func NewSysBoxService(sysBox mongo.SysBoxRepo) SysBoxService {
	return &sysBoxServiceImpl{
		sysBoxRepo: sysBox,
		now:        time.Now,
	}
}

// GetNotificationList 召回通知列表，漏斗阶段、推荐服务和截止时间从 payload 展开
func (s *sysBoxServiceImpl) GetNotificationList(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.SysBoxDTO, error) {
	page, pageSize = normalizePage(page, pageSize)

	list, err := s.sysBoxRepo.GetNotificationList(ctx, userID, int64(pageSize), int64((page-1)*pageSize))
	if err != nil {
		return nil, err
	}

	now := s.now()
	res := make([]*dto.SysBoxDTO, 0, len(list))
	for _, m := range list {
		res = append(res, toSysBoxDTO(m, now))
	}
	return res, nil
}

func toSysBoxDTO(m *mongo.SysBoxModel, now time.Time) *dto.SysBoxDTO {
	d := &dto.SysBoxDTO{}
	_ = copier.Copy(d, m)
	d.ID = m.ID.Hex()
	d.CreatedAt = m.CreatedAt.UTC().Format(time.RFC3339)
	d.SenderName = noticeSenders[m.Type]
	if d.SenderName == "" {
		d.SenderName = "系统通知"
	}

	if m.Payload == nil {
		return d
	}
	d.Stage = cast.ToString(m.Payload["stage"])
	d.ServiceIDs = payloadIDs(m.Payload["service_ids"])
	if raw := cast.ToString(m.Payload["deadline"]); raw != "" {
		d.Deadline = raw
		if deadline, err := time.Parse(time.RFC3339, raw); err == nil {
			d.Expired = !now.Before(deadline)
		}
	}
	return d
}

// payloadIDs Mongo 解出来的数组是 primitive.A，元素是 int64
func payloadIDs(raw any) []uint64 {
	var items []any
	switch v := raw.(type) {
	case primitive.A:
		items = v
	case []any:
		items = v
	case []uint64:
		return v
	default:
		return nil
	}

	ids := make([]uint64, 0, len(items))
	for _, item := range items {
		if id := cast.ToUint64(item); id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *sysBoxServiceImpl) GetUnreadCount(ctx context.Context, userID uint64) (*dto.SysBoxUnreadDTO, error) {
	count, err := s.sysBoxRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.SysBoxUnreadDTO{UnreadCount: count}, nil
}

// MarkRead 按 (id, receiver) 直接更新，未命中时再区分不存在和越权
func (s *sysBoxServiceImpl) MarkRead(ctx context.Context, userID uint64, msgID string) error {
	objectID, err := primitive.ObjectIDFromHex(msgID)
	if err != nil {
		return ErrParamInvalid
	}

	err = s.sysBoxRepo.MarkAsRead(ctx, userID, objectID)
	if !errors.Is(err, mongoDB.ErrNoDocuments) {
		return err
	}

	if _, err = s.sysBoxRepo.GetByID(ctx, objectID); err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return ErrSysBoxNotFound
		}
		return err
	}
	return UnauthorizedError
}

func (s *sysBoxServiceImpl) MarkAllRead(ctx context.Context, userID uint64) error {
	return s.sysBoxRepo.MarkAllAsRead(ctx, userID)
}
