// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"matesl-go/internal/model"
	"matesl-go/internal/service"
	"matesl-go/pkg/log"
	"matesl-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextUserKey   = "user"
	ContextClaimsKey = "claims"
	ContextTokenKey  = "token"
)

// BearerToken 从 Authorization 请求头中提取 token。
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	return tokenString, tokenString != ""
}

// authenticate 校验 access token 与黑名单，并加载仍处于启用状态的用户。
func authenticate(c *gin.Context, jwtManager *token.JWTManager, userService service.UserService, tokenString string) (*model.User, *token.CustomClaims, string) {
	claims, err := jwtManager.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, "无效或已过期的 token"
	}
	revoked, err := userService.IsTokenRevoked(c.Request.Context(), tokenString)
	if err != nil {
		log.Errorf("[AuthMiddleware] 查询 token 黑名单失败: %v", err)
		return nil, nil, "无法校验 token"
	}
	if revoked {
		return nil, nil, "token 已失效"
	}
	user, err := userService.GetProfile(claims.UserID)
	if err != nil {
		// 用户可能已被删除
		return nil, nil, "用户不存在"
	}
	if !user.IsActive {
		return nil, nil, "用户已停用"
	}
	return user, claims, ""
}

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 验证通过后将完整的 User 对象存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "请求未包含有效的授权头", "data": nil})
			return
		}
		user, claims, reason := authenticate(c, jwtManager, userService, tokenString)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": reason, "data": nil})
			return
		}
		c.Set(ContextUserKey, user)
		c.Set(ContextClaimsKey, claims)
		c.Set(ContextTokenKey, tokenString)
		c.Next()
	}
}

// OptionalAuth 在携带有效 token 时设置用户，否则以匿名身份继续。
func OptionalAuth(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := BearerToken(c); ok {
			if user, claims, _ := authenticate(c, jwtManager, userService, tokenString); user != nil {
				c.Set(ContextUserKey, user)
				c.Set(ContextClaimsKey, claims)
				c.Set(ContextTokenKey, tokenString)
			}
		}
		c.Next()
	}
}

// CurrentUser 返回认证中间件写入的用户。
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}

// CurrentUserID 返回当前用户 ID，匿名请求返回 nil。
func CurrentUserID(c *gin.Context) *uint {
	user, ok := CurrentUser(c)
	if !ok {
		return nil
	}
	id := user.ID
	return &id
}
