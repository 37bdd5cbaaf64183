package kafka

import (
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/logger"
	"TradeTalent/internal/pkg/metrics"
	"TradeTalent/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

const (
	listingTable = "services"
	// 覆盖 canal 重投与消费组重平衡的窗口
	listingScoredTTL = 7 * 24 * time.Hour
)

// scoredMarker 记录已经计过分的服务，redis.Locker 即可满足
type scoredMarker interface {
	TryLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, value string)
}

// ListingHandler 新发布的服务计为 SERVICE_POST
// 消息至少投递一次，同一条服务只计一次分
type ListingHandler struct {
	engagementSvc service.EngagementService
	marker        scoredMarker
}

func NewListingHandler(engagementSvc service.EngagementService, marker scoredMarker) *ListingHandler {
	return &ListingHandler{
		engagementSvc: engagementSvc,
		marker:        marker,
	}
}

func (s *ListingHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("listing consumer setup")
	return nil
}

func (s *ListingHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("listing consumer cleanup")
	return nil
}

func (s *ListingHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-listing consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-listing process batch error", "err", err)
		return err
	}
	log.Info("topic-listing consume claim end")
	return nil
}

func (s *ListingHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = context.WithValue(ctx, logger.TraceIDKey, "kafka-listing-"+uuid.NewString())

	canalMsg, err := ToCanalMessage(msg, listingTable)
	if err != nil {
		metrics.ConsumedEvents.WithLabelValues(msg.Topic, "dropped").Inc()
		log.WarnContext(ctx, "drop listing event", "offset", msg.Offset, "err", err)
		return nil
	}
	// 只有新建计分，更新与删除忽略
	rows := canalMsg.InsertedRows()
	if len(rows) == 0 {
		log.DebugContext(ctx, "skip listing change", "type", canalMsg.Type, "binlog_ms", canalMsg.ES)
		return nil
	}

	for _, row := range rows {
		ownerID := StrToUint64(row["user_id"])
		if ownerID == 0 {
			log.WarnContext(ctx, "listing row without owner", "listing_id", row["id"])
			continue
		}
		listingID, _ := row["id"].(string)
		if err = s.scoreListing(ctx, msg, listingID, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// scoreListing 多行 INSERT 处理到一半被取消时整条消息会重投，已计分的行直接跳过
func (s *ListingHandler) scoreListing(ctx context.Context, msg *sarama.ConsumerMessage, listingID string, ownerID uint64) error {
	if listingID == "" {
		return recordAction(ctx, s.engagementSvc, msg.Topic, ownerID, service.ActionServicePost)
	}

	key := consts.ListingScoredPrefix + listingID
	fresh, err := s.marker.TryLock(ctx, key, listingID, listingScoredTTL)
	if err != nil {
		return err
	}
	if !fresh {
		metrics.ConsumedEvents.WithLabelValues(msg.Topic, "duplicate").Inc()
		log.DebugContext(ctx, "listing already scored", "listing_id", listingID, "offset", msg.Offset)
		return nil
	}

	if err = recordAction(ctx, s.engagementSvc, msg.Topic, ownerID, service.ActionServicePost); err != nil {
		// 未生效，留给重投
		s.marker.Unlock(context.WithoutCancel(ctx), key, listingID)
		return err
	}
	return nil
}
