package kafka

import (
	"TradeTalent/internal/api/config"
	"time"

	"github.com/IBM/sarama"
)

const clientID = "tradetalent-engagement"

// newSaramaConfig 行为事件与 canal 变更两个消费组共用，位点手动提交
func newSaramaConfig(kafkaCfg config.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = clientID

	if kafkaCfg.Sasl.Enable {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = kafkaCfg.Sasl.Username
		c.Net.SASL.Password = kafkaCfg.Sasl.Password
	}

	c.Consumer.Return.Errors = true
	// 新消费组默认从最新位点开始，oldest 用于补算历史行为
	c.Consumer.Offsets.Initial = sarama.OffsetNewest
	if kafkaCfg.Consumer.InitialOffset == "oldest" {
		c.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	c.Consumer.Offsets.AutoCommit.Enable = false

	c.Consumer.Group.Session.Timeout = seconds(kafkaCfg.Consumer.SessionTimeout, 10)
	c.Consumer.Group.Heartbeat.Interval = seconds(kafkaCfg.Consumer.HeartbeatInterval, 3)
	c.Consumer.Group.Rebalance.Timeout = seconds(kafkaCfg.Consumer.RebalanceTimeout, 60)
	c.Consumer.MaxProcessingTime = seconds(kafkaCfg.Consumer.MaxProcessingTime, 30)

	return c
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}
