package logger

import (
	"context"
	log "log/slog"
)

// Context 中的 Key
const (
	TraceIDKey = "trace_id"
	// ActorIDKey 发起请求的登录用户，区别于日志里被操作的 user_id
	ActorIDKey = "actor_id"
)

// ContextHandler 从 ctx 中提取 trace_id 与 actor_id
type ContextHandler struct {
	log.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r log.Record) error {
	if ctx == nil {
		return h.Handler.Handle(ctx, r)
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(log.String(TraceIDKey, traceID))
	}
	if actorID, ok := ctx.Value(ActorIDKey).(uint64); ok && actorID != 0 {
		r.AddAttrs(log.Uint64(ActorIDKey, actorID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []log.Attr) log.Handler {
	return &ContextHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) log.Handler {
	return &ContextHandler{h.Handler.WithGroup(name)}
}
