package kafka

import (
	"TradeTalent/internal/pkg/metrics"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

const (
	batchSize    = 32
	batchTimeout = 1 * time.Second
	retryBase    = 100 * time.Millisecond
	retryMax     = 5 * time.Second
)

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// pullMessageBatch 攒够 batchSize 条或等待 batchTimeout 后处理一批
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, batchSize)
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				if len(batch) > 0 {
					processBatch(session, batch, logic)
				}
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
				ticker.Reset(batchTimeout)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 按消息 key 分组并发处理，同一用户的行为事件保持分区内顺序
func processBatch(session sarama.ConsumerGroupSession, messages []*sarama.ConsumerMessage, logic LogicFunc) {
	if len(messages) == 0 {
		return
	}
	ctx := session.Context()

	keys := make([]string, 0, len(messages))
	groups := make(map[string][]*sarama.ConsumerMessage)
	for _, m := range messages {
		k := string(m.Key)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], m)
	}

	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func(msgs []*sarama.ConsumerMessage) {
			defer wg.Done()
			for _, m := range msgs {
				if !consumeWithRetry(ctx, m, logic) {
					return
				}
			}
		}(groups[k])
	}
	wg.Wait()

	// 会话结束时批次可能没处理完，不提交位点，重平衡后重新投递
	if ctx.Err() != nil {
		return
	}
	session.MarkMessage(messages[len(messages)-1], "")
}

// consumeWithRetry 失败后指数退避重试，直到成功或会话结束
func consumeWithRetry(ctx context.Context, m *sarama.ConsumerMessage, logic LogicFunc) bool {
	retryInterval := retryBase
	for {
		err := logic(ctx, m)
		if err == nil {
			metrics.ConsumedEvents.WithLabelValues(m.Topic, "ok").Inc()
			return true
		}

		metrics.ConsumedEvents.WithLabelValues(m.Topic, "retry").Inc()
		log.ErrorContext(ctx, "process message error", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "err", err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(retryInterval):
		}
		retryInterval = min(retryInterval*2, retryMax)
	}
}

// ToCanalMessage 将kafka消息转换为canal消息结构体
func ToCanalMessage(msg *sarama.ConsumerMessage, tableName string) (*CanalMessage, error) {
	var canalMsg CanalMessage
	if err := json.Unmarshal(msg.Value, &canalMsg); err != nil {
		log.Error("unmarshal canal message error", "err", err)
		return nil, err
	}

	if canalMsg.Table != tableName {
		return nil, errors.New("table name not match")
	}

	if len(canalMsg.Data) == 0 {
		return nil, errors.New("data is empty")
	}

	return &canalMsg, nil
}

// StrToUint64 canal 的 data 字段值均为字符串
func StrToUint64(v interface{}) uint64 {
	switch val := v.(type) {
	case string:
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case float64:
		return uint64(val)
	case nil:
		return 0
	default:
		n, _ := strconv.ParseUint(fmt.Sprint(val), 10, 64)
		return n
	}
}
