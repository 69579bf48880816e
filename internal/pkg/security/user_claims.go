package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecret         = []byte("KoraQuest")
	jwtIssuer         = "KoraQuest"
	jwtExpirationTime = time.Hour * 24
)

// Setup 使用配置覆盖默认签名参数，启动时调用一次
func Setup(secret, issuer string, expireHour int) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
	if issuer != "" {
		jwtIssuer = issuer
	}
	if expireHour > 0 {
		jwtExpirationTime = time.Duration(expireHour) * time.Hour
	}
}

// UserClaims 市场主站签发的身份信息，聊天服务只做校验
type UserClaims struct {
	UserID   uint64   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}
