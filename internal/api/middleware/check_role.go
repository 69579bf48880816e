package middleware

import (
	"KoraChat/internal/pkg/consts"
	"KoraChat/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// CheckRoles 检查当前用户是否拥有至少一个指定的角色
func CheckRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := c.GetStringSlice(consts.RolesKey)
		if !lo.Some(roles, requiredRoles) {
			response.Fail(c, response.Forbidden, "permission denied")
			c.Abort()
			return
		}
		c.Next()
	}
}
