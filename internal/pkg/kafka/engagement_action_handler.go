package kafka

import (
	"TradeTalent/internal/pkg/logger"
	"TradeTalent/internal/pkg/metrics"
	"TradeTalent/internal/service"
	"context"
	"errors"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ActionEvent 其它服务上报的计分行为
type ActionEvent struct {
	UserID uint64 `json:"user_id"`
	Action string `json:"action"`
}

type EngagementActionHandler struct {
	engagementSvc service.EngagementService
}

func NewEngagementActionHandler(engagementSvc service.EngagementService) *EngagementActionHandler {
	return &EngagementActionHandler{
		engagementSvc: engagementSvc,
	}
}

func (s *EngagementActionHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("engagement action consumer setup")
	return nil
}

func (s *EngagementActionHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("engagement action consumer cleanup")
	return nil
}

func (s *EngagementActionHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-engagement-action consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-engagement-action process batch error", "err", err)
		return err
	}
	log.Info("topic-engagement-action consume claim end")
	return nil
}

// logic 无法处理的事件记日志后确认，只有会话取消才返回错误
func (s *EngagementActionHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = context.WithValue(ctx, logger.TraceIDKey, "kafka-action-"+uuid.NewString())

	var event ActionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil || event.UserID == 0 {
		metrics.ConsumedEvents.WithLabelValues(msg.Topic, "dropped").Inc()
		log.WarnContext(ctx, "drop malformed action event", "offset", msg.Offset, "value", string(msg.Value), "err", err)
		return nil
	}

	kind, err := service.ParseActionKind(event.Action)
	if err != nil {
		metrics.ConsumedEvents.WithLabelValues(msg.Topic, "dropped").Inc()
		log.WarnContext(ctx, "drop unknown action event", "user_id", event.UserID, "action", event.Action)
		return nil
	}

	return recordAction(ctx, s.engagementSvc, msg.Topic, event.UserID, kind)
}

func recordAction(ctx context.Context, svc service.EngagementService, topic string, userID uint64, kind service.ActionKind) error {
	score, err := svc.RecordAction(ctx, userID, kind)
	if err == nil {
		log.InfoContext(ctx, "action recorded", "user_id", userID, "action", kind, "score", score)
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	metrics.ConsumedEvents.WithLabelValues(topic, "dropped").Inc()
	log.WarnContext(ctx, "action not applied", "user_id", userID, "action", kind, "err", err)
	return nil
}
