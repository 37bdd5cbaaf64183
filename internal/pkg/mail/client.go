package mail

import (
	"TradeTalent/internal/api/config"
	"TradeTalent/internal/pkg/logger"
	"context"
	"fmt"
	log "log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Message 一封待发送的邮件
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"text"`
}

// Client 外部邮件服务
type Client interface {
	Send(ctx context.Context, msg *Message) error
}

type sendRequest struct {
	From string `json:"from"`
	*Message
}

type restyClient struct {
	httpClient *resty.Client
	cfg        config.MailConfig
}

// NewClient 未启用时返回只记日志的实现
func NewClient(cfg config.MailConfig) Client {
	if !cfg.Enable {
		return &logOnlyClient{}
	}

	client := resty.New().
		SetTransport(logger.NewHTTPTransport()).
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetRetryCount(1).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.ApiKey)

	return &restyClient{httpClient: client, cfg: cfg}
}

func (s *restyClient) Send(ctx context.Context, msg *Message) error {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(&sendRequest{From: s.cfg.From, Message: msg}).
		Post(s.cfg.URL)
	if err != nil {
		return fmt.Errorf("mail send failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mail send failed: %s", resp.Status())
	}
	return nil
}

type logOnlyClient struct{}

func (s *logOnlyClient) Send(ctx context.Context, msg *Message) error {
	log.InfoContext(ctx, "mail disabled, skip sending", "to", msg.To, "subject", msg.Subject)
	return nil
}
