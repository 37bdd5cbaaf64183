package middleware

import (
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/logger"
	"TradeTalent/internal/pkg/redis"
	"TradeTalent/internal/pkg/response"
	"TradeTalent/internal/pkg/security"
	"context"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 校验账号服务签发的 JWT，并检查是否已被吊销
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		signature, err := security.ExtractSignature(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		claims, err := security.ValidateToken(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		revoked, err := redis.GetValue(c.Request.Context(), consts.TokenRevokedPrefix+signature)
		if err != nil {
			log.ErrorContext(c.Request.Context(), "check token revocation failed", "err", err)
			response.Fail(c, response.ServiceUnavailable, "服务暂不可用")
			c.Abort()
			return
		}
		if revoked != "" {
			response.Fail(c, response.Unauthorized, "Token 已失效")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("roles", claims.Roles)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.ActorIDKey, claims.UserID))

		c.Next()
	}
}
