package kafka

import (
	"TradeTalent/internal/api/config"
	"TradeTalent/internal/pkg/redis"
	"TradeTalent/internal/service"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理所有 Kafka 消费者
type ConsumerManager struct {
	actionConsumer sarama.ConsumerGroup
	actionHandler  sarama.ConsumerGroupHandler

	listingConsumer sarama.ConsumerGroup
	listingHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, engagementSvc service.EngagementService) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	actionConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaActionConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	listingConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaListingConsumer.GroupID, saramaCfg)
	if err != nil {
		_ = actionConsumer.Close()
		return nil, err
	}

	return &ConsumerManager{
		actionConsumer:  actionConsumer,
		actionHandler:   NewEngagementActionHandler(engagementSvc),
		listingConsumer: listingConsumer,
		listingHandler:  NewListingHandler(engagementSvc, redis.NewLocker()),
	}, nil
}

// Start 启动所有消费者，阻塞到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	go m.consume(ctx, "Engagement action", cfg.KafkaActionConsumer.Topic, m.actionConsumer, m.actionHandler)
	go m.consume(ctx, "Listing", cfg.KafkaListingConsumer.Topic, m.listingConsumer, m.listingHandler)

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.actionConsumer.Close(); err != nil {
		log.Error("Failed to close action consumer", "err", err)
	}
	if err := m.listingConsumer.Close(); err != nil {
		log.Error("Failed to close listing consumer", "err", err)
	}
	return nil
}

func (m *ConsumerManager) consume(ctx context.Context, name, topic string, group sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler) {
	log.Info(name+" consumer started", "topic", topic)
	for {
		if err := group.Consume(ctx, []string{topic}, handler); err != nil {
			log.Error("Error from consumer", "topic", topic, "err", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
