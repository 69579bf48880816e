package middleware

import (
	"KoraChat/internal/pkg/consts"
	"KoraChat/internal/pkg/redis"
	"KoraChat/internal/pkg/response"
	"KoraChat/internal/pkg/security"
	"context"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.Unauthorized, "missing or malformed token")
			c.Abort()
			return
		}

		claims, ok := authenticate(c, strings.TrimPrefix(authHeader, "Bearer "))
		if !ok {
			c.Abort()
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// authenticate 校验签名与黑名单，失败时已写入响应
func authenticate(c *gin.Context, tokenString string) (*security.UserClaims, bool) {
	signature, err := security.ExtractSignature(tokenString)
	if err != nil {
		response.Fail(c, response.Unauthorized, "missing or malformed token")
		return nil, false
	}

	revoked, err := redis.IsTokenRevoked(c.Request.Context(), consts.TokenBlacklistKey+signature)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "check token blacklist failed", "err", err)
		response.Fail(c, response.InternalServerError, "temporary failure, please retry")
		return nil, false
	}
	if revoked {
		response.Fail(c, response.Unauthorized, "token is invalid or expired")
		return nil, false
	}

	claims, err := security.ValidateToken(tokenString)
	if err != nil {
		response.Fail(c, response.Unauthorized, "token is invalid or expired")
		return nil, false
	}
	return claims, true
}

func setIdentity(c *gin.Context, claims *security.UserClaims) {
	c.Set(consts.UserIDKey, claims.UserID)
	c.Set(consts.UsernameKey, claims.Username)
	c.Set(consts.RolesKey, claims.Roles)

	newCtx := context.WithValue(c.Request.Context(), consts.UserIDKey, claims.UserID)
	c.Request = c.Request.WithContext(newCtx)
}
