package middleware

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
)

// 审计日志中请求与响应体的截断长度
const auditBodyLimit = 4096

// 探活与指标抓取不进审计日志
var auditSkipPaths = []string{"/metrics", "/api/ping"}

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *responseBodyWriter) Write(b []byte) (int, error) {
	if remain := auditBodyLimit - r.body.Len(); remain > 0 {
		r.body.Write(b[:min(len(b), remain)])
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseBodyWriter) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func truncateBody(b []byte) string {
	if len(b) > auditBodyLimit {
		return string(b[:auditBodyLimit]) + "...(truncated)"
	}
	return string(b)
}

func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(auditSkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		var reqBody []byte
		if c.Request.Body != nil {
			reqBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(reqBody))
		}

		query, err := url.QueryUnescape(c.Request.URL.RawQuery)
		if err != nil {
			query = c.Request.URL.RawQuery
		}

		log.InfoContext(ctx, "Recv Request",
			log.String("method", c.Request.Method),
			log.String("path", c.Request.URL.Path),
			log.String("query", query),
			log.String("req_body", truncateBody(reqBody)),
		)

		w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w
		start := time.Now()

		c.Next()

		// user_id 由鉴权中间件在 Next 之后才可见
		log.InfoContext(ctx, "Send Response",
			log.Uint64("user_id", c.GetUint64("user_id")),
			log.String("route", c.FullPath()),
			log.Int("status", c.Writer.Status()),
			log.Duration("latency", time.Since(start)),
			log.String("res_body", w.body.String()),
		)
	}
}
