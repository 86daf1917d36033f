package middleware

import (
	"net/http"

	"matesl-go/internal/model"

	"github.com/gin-gonic/gin"
)

// RequireRole 检查当前用户角色是否满足 allow。
// 此中间件必须在 AuthMiddleware 之后使用。
func RequireRole(allow func(model.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		currentUser, ok := CurrentUser(c)
		if !ok {
			// AuthMiddleware 未能设置用户，属于路由装配错误
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法获取用户信息", "data": nil})
			return
		}
		if !allow(currentUser.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "权限不足", "data": nil})
			return
		}
		c.Next()
	}
}

// AdminAuthMiddleware 只允许 ADMIN 和 SUPER_ADMIN。
func AdminAuthMiddleware() gin.HandlerFunc {
	return RequireRole(model.Role.IsAdmin)
}

// ContentManagerMiddleware 允许管理员和 CONTENT_MANAGER 维护流程目录。
func ContentManagerMiddleware() gin.HandlerFunc {
	return RequireRole(model.Role.CanManageContent)
}
