package handler

import (
	"errors"
	"net/http"

	"matesl-go/internal/middleware"
	"matesl-go/internal/service"
	"matesl-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理当前登录用户的资料与检索记录。
type UserHandler struct {
	userService    service.UserService
	historyService *service.SearchHistoryService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService, historyService *service.SearchHistoryService) *UserHandler {
	return &UserHandler{userService: userService, historyService: historyService}
}

// GetProfile 获取当前登录用户的个人信息。
// 用户信息已经由 AuthMiddleware 注入到上下文中。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusInternalServerError, "无法获取用户信息")
		return
	}
	success(c, "success", user)
}

// UpdateProfile 修改姓名或首选语言。
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}
	updated, err := h.userService.UpdateProfile(user.ID, req)
	if err != nil {
		log.Warnf("UpdateProfile: user %d, error: %v", user.ID, err)
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	success(c, "Profile updated", updated)
}

// ChangePasswordRequest 定义了修改密码 API 的请求体结构。
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// ChangePassword 校验旧密码后设置新密码。
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载：旧密码和新密码不能为空")
		return
	}
	err := h.userService.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "当前密码错误")
		return
	case errors.Is(err, service.ErrWeakPassword):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Errorf("ChangePassword: user %d, error: %v", user.ID, err)
		fail(c, http.StatusInternalServerError, "修改密码失败")
		return
	}
	success(c, "Password changed", nil)
}

// SearchHistory 分页返回当前用户的检索记录。
func (h *UserHandler) SearchHistory(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	page := queryInt(c, "page", 1)
	size := queryInt(c, "limit", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > service.MaxSearchLimit {
		size = 20
	}
	entries, total, err := h.historyService.History(c.Request.Context(), user.ID, (page-1)*size, size)
	if err != nil {
		log.Errorf("SearchHistory: user %d, error: %v", user.ID, err)
		fail(c, http.StatusInternalServerError, "获取检索记录失败")
		return
	}
	success(c, "success", service.NewPage(entries, total, page, size))
}
