package middleware

import (
	"KoraChat/internal/pkg/consts"
	"strings"

	"github.com/gin-gonic/gin"
)

// WsAuthMiddleware websocket 握手鉴权，浏览器无法自定义头部，token 也可以放在 ?token= 上
func WsAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}
		if token == "" {
			c.Set(consts.UserIDKey, uint64(0))
			c.Next()
			return
		}

		claims, ok := authenticate(c, token)
		if !ok {
			c.Abort()
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}
