package middleware

import (
	"TradeTalent/internal/pkg/response"
	"slices"

	"github.com/gin-gonic/gin"
)

// CheckRoles 至少拥有其中一个角色，内部接口由 ADMIN 或 SERVICE 调用
func CheckRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := c.GetStringSlice("roles")
		if !slices.ContainsFunc(requiredRoles, func(r string) bool { return slices.Contains(roles, r) }) {
			response.Fail(c, response.Forbidden, "权限不足：无权访问该资源")
			c.Abort()
			return
		}
		c.Next()
	}
}
