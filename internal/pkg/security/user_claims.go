package security

import (
	"TradeTalent/internal/api/config"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	JWTSecret         = "TradeTalent"
	JWTIssuer         = "TradeTalent"
	JWTExpirationTime = time.Hour * 24
)

// UserClaims 定义了我们 Token 中需要包含的业务信息
type UserClaims struct {
	UserID uint64   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Init 使用配置覆盖默认的签名参数
func Init(cfg config.SecurityConfig) {
	if cfg.JWTSecret != "" {
		JWTSecret = cfg.JWTSecret
	}
	if cfg.JWTIssuer != "" {
		JWTIssuer = cfg.JWTIssuer
	}
	if cfg.JWTTTL > 0 {
		JWTExpirationTime = time.Duration(cfg.JWTTTL) * time.Hour
	}
}
