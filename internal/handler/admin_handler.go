package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/internal/service"
	"matesl-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理所有与管理员相关的 API 请求。
type AdminHandler struct {
	adminService     service.AdminService
	procedureService service.ProcedureService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService, procedureService service.ProcedureService) *AdminHandler {
	return &AdminHandler{
		adminService:     adminService,
		procedureService: procedureService,
	}
}

// Dashboard 返回管理后台的统计数据。
func (h *AdminHandler) Dashboard(c *gin.Context) {
	d, err := h.adminService.Dashboard(c.Request.Context())
	if err != nil {
		log.Errorf("Dashboard: error: %v", err)
		fail(c, http.StatusInternalServerError, "获取统计数据失败")
		return
	}
	success(c, "success", d)
}

// ListUsers 分页获取用户列表，支持按邮箱或姓名搜索。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, err := h.adminService.ListUsers(queryInt(c, "page", 1), queryInt(c, "size", 20), c.Query("search"))
	if err != nil {
		log.Errorf("ListUsers: error: %v", err)
		fail(c, http.StatusInternalServerError, "获取用户列表失败")
		return
	}
	success(c, "success", page)
}

// UpdateRoleRequest 定义了修改角色 API 的请求体结构。
type UpdateRoleRequest struct {
	Role model.Role `json:"role" binding:"required"`
}

// UpdateUserRole 修改用户角色。
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "无效的用户 ID")
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}
	user, err := h.adminService.UpdateUserRole(uint(id), model.Role(strings.ToUpper(string(req.Role))))
	switch {
	case errors.Is(err, service.ErrInvalidRole):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrUserNotFound):
		fail(c, http.StatusNotFound, err.Error())
		return
	case err != nil:
		log.Errorf("UpdateUserRole: error: %v", err)
		fail(c, http.StatusInternalServerError, "修改角色失败")
		return
	}
	success(c, "Role updated", user)
}

// ListProcedures 列出任意状态的流程。
func (h *AdminHandler) ListProcedures(c *gin.Context) {
	status := model.ProcedureStatus(strings.ToUpper(c.Query("status")))
	if status != "" && !status.Valid() {
		fail(c, http.StatusBadRequest, "未知的状态")
		return
	}
	opts := listOptions(c, status)
	if opts.Category != "" && !opts.Category.Valid() {
		fail(c, http.StatusBadRequest, "未知的分类")
		return
	}
	procedures, total, err := h.procedureService.List(c.Request.Context(), opts)
	if err != nil {
		log.Errorf("ListProcedures: error: %v", err)
		fail(c, http.StatusInternalServerError, "获取流程列表失败")
		return
	}
	if procedures == nil {
		procedures = []model.Procedure{}
	}
	success(c, "success", gin.H{
		"procedures": procedures,
		"pagination": newPagination(opts.Limit, opts.Offset, total),
	})
}

// CreateProcedure 创建流程。
func (h *AdminHandler) CreateProcedure(c *gin.Context) {
	var in service.ProcedureInput
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Warnf("CreateProcedure: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载：标题和分类不能为空")
		return
	}
	p, err := h.procedureService.Create(c.Request.Context(), in)
	if err != nil {
		procedureError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "message": "Procedure created", "data": p})
}

// UpdateProcedureRequest 中为 nil 的字段不修改；keywords 或 searchTags 出现时整体替换检索词。
type UpdateProcedureRequest struct {
	Title             *string           `json:"title"`
	TitleSi           *string           `json:"titleSi"`
	TitleTa           *string           `json:"titleTa"`
	Description       *string           `json:"description"`
	Category          *model.Category   `json:"category"`
	Difficulty        *model.Difficulty `json:"difficulty"`
	EstimatedDuration *string           `json:"estimatedDuration"`
	Keywords          *[]string         `json:"keywords"`
	SearchTags        *[]string         `json:"searchTags"`
}

func (r UpdateProcedureRequest) changes() repository.ProcedureChanges {
	ch := repository.ProcedureChanges{
		Title:             r.Title,
		TitleSi:           r.TitleSi,
		TitleTa:           r.TitleTa,
		Description:       r.Description,
		Category:          r.Category,
		Difficulty:        r.Difficulty,
		EstimatedDuration: r.EstimatedDuration,
	}
	if r.Keywords != nil || r.SearchTags != nil {
		ch.ReplaceTerms = true
		if r.Keywords != nil {
			ch.Keywords = *r.Keywords
		}
		if r.SearchTags != nil {
			ch.SearchTags = *r.SearchTags
		}
	}
	return ch
}

// UpdateProcedure 修改流程，版本号加一。
func (h *AdminHandler) UpdateProcedure(c *gin.Context) {
	var req UpdateProcedureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}
	p, err := h.procedureService.Update(c.Request.Context(), c.Param("id"), req.changes())
	if err != nil {
		procedureError(c, err)
		return
	}
	success(c, "Procedure updated", p)
}

// UpdateStatusRequest 定义了修改流程状态 API 的请求体结构。
type UpdateStatusRequest struct {
	Status model.ProcedureStatus `json:"status" binding:"required"`
}

// UpdateProcedureStatus 修改流程状态，例如发布或下线。
func (h *AdminHandler) UpdateProcedureStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}
	status := model.ProcedureStatus(strings.ToUpper(string(req.Status)))
	p, err := h.procedureService.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		procedureError(c, err)
		return
	}
	success(c, "Status updated", p)
}

// ReindexProcedures 重建检索索引。
func (h *AdminHandler) ReindexProcedures(c *gin.Context) {
	n, err := h.procedureService.Reindex(c.Request.Context())
	if err != nil {
		log.Errorf("ReindexProcedures: indexed %d before error: %v", n, err)
		fail(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	success(c, "Reindex complete", gin.H{"indexed": n})
}

// ListConversations 分页浏览所有聊天消息。
func (h *AdminHandler) ListConversations(c *gin.Context) {
	page, err := h.adminService.ListConversations(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		log.Errorf("ListConversations: error: %v", err)
		fail(c, http.StatusInternalServerError, "获取对话失败")
		return
	}
	success(c, "success", page)
}

// ClearCache 清除 AI 响应缓存。
func (h *AdminHandler) ClearCache(c *gin.Context) {
	n, err := h.adminService.ClearAICache(c.Request.Context(), c.Query("pattern"))
	if err != nil {
		fail(c, http.StatusBadGateway, "AI 服务不可用")
		return
	}
	success(c, "Cache cleared", gin.H{"cleared": n})
}

// ModelStatus 返回 AI 服务中配置的模型。
func (h *AdminHandler) ModelStatus(c *gin.Context) {
	statuses, err := h.adminService.ModelStatus(c.Request.Context())
	if err != nil {
		log.Errorf("ModelStatus: error: %v", err)
		fail(c, http.StatusBadGateway, "AI 服务不可用")
		return
	}
	success(c, "success", statuses)
}
