package handler

import (
	"errors"
	"net/http"

	"matesl-go/internal/middleware"
	"matesl-go/internal/model"
	"matesl-go/internal/service"
	"matesl-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责处理注册、登录、刷新和登出。
type AuthHandler struct {
	userService service.UserService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(userService service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// RegisterRequest 定义了用户注册 API 的请求体结构。
type RegisterRequest struct {
	Email             string         `json:"email" binding:"required"`
	Name              string         `json:"name"`
	Password          string         `json:"password" binding:"required"`
	PreferredLanguage model.Language `json:"preferredLanguage"`
}

// Register 处理用户注册请求。
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Register: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载：邮箱和密码不能为空")
		return
	}

	user, err := h.userService.Register(req.Email, req.Name, req.Password, req.PreferredLanguage)
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		fail(c, http.StatusConflict, err.Error())
		return
	case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrWeakPassword):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Errorf("Register: registration failed, error: %v", err)
		fail(c, http.StatusInternalServerError, "注册失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "User registered successfully",
		"data":    user,
	})
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载：邮箱和密码不能为空")
		return
	}

	user, tokens, err := h.userService.Login(req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "无效的凭证")
		return
	case errors.Is(err, service.ErrUserInactive):
		fail(c, http.StatusForbidden, err.Error())
		return
	case err != nil:
		log.Errorf("Login: authentication failed, error: %v", err)
		fail(c, http.StatusInternalServerError, "登录失败")
		return
	}

	log.Infof("User %d logged in successfully", user.ID)
	success(c, "Login successful", gin.H{
		"user":         user,
		"token":        tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	})
}

// RefreshTokenRequest 定义了刷新 token API 的请求体结构。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken 处理刷新 token 的请求。
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("RefreshToken: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载：refreshToken 不能为空")
		return
	}

	tokens, err := h.userService.RefreshToken(req.RefreshToken)
	if err != nil {
		log.Warnf("RefreshToken: Failed to refresh token, error: %v", err)
		fail(c, http.StatusUnauthorized, "无效的 refresh token")
		return
	}

	success(c, "Token refreshed successfully", gin.H{
		"token":        tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	})
}

// Logout 将当前 access token 加入黑名单。需要经过 AuthMiddleware。
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenString := c.GetString(middleware.ContextTokenKey)
	if err := h.userService.Logout(c.Request.Context(), tokenString); err != nil {
		log.Errorf("Logout: failed to revoke token, error: %v", err)
		fail(c, http.StatusInternalServerError, "登出失败")
		return
	}
	success(c, "Logout successful", nil)
}
