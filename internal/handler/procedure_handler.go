package handler

import (
	"errors"
	"net/http"
	"strings"

	"matesl-go/internal/middleware"
	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/internal/service"
	"matesl-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ProcedureHandler 负责处理流程目录的公开 API。
type ProcedureHandler struct {
	searchService    service.SearchService
	procedureService service.ProcedureService
}

// NewProcedureHandler 创建一个新的 ProcedureHandler 实例。
func NewProcedureHandler(searchService service.SearchService, procedureService service.ProcedureService) *ProcedureHandler {
	return &ProcedureHandler{searchService: searchService, procedureService: procedureService}
}

// Pagination 是列表接口附带的分页信息，page 从 1 开始。
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func newPagination(limit, offset int, total int64) Pagination {
	p := Pagination{Limit: limit, Offset: offset, Total: total, Page: 1}
	if limit > 0 {
		p.Page = offset/limit + 1
		p.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return p
}

// Search 处理目录检索请求。存储故障时返回空结果而不是错误。
func (h *ProcedureHandler) Search(c *gin.Context) {
	category := model.Category(strings.ToUpper(c.Query("category")))
	if category != "" && !category.Valid() {
		fail(c, http.StatusBadRequest, "未知的分类")
		return
	}
	var language model.Language
	if raw := c.Query("language"); raw != "" {
		lang, ok := model.ParseLanguage(raw)
		if !ok {
			fail(c, http.StatusBadRequest, "不支持的语言")
			return
		}
		language = lang
	}

	q := service.SearchQuery{
		Query:    c.Query("q"),
		Category: category,
		Language: language,
		Limit:    queryInt(c, "limit", service.DefaultSearchLimit),
		Offset:   queryInt(c, "offset", 0),
		UserID:   middleware.CurrentUserID(c),
	}
	f := service.NewProcedureFilter(q)
	result := h.searchService.Search(c.Request.Context(), q)

	success(c, "success", gin.H{
		"procedures":  result.Procedures,
		"total":       result.Total,
		"suggestions": result.Suggestions,
		"degraded":    result.Degraded,
		"pagination":  newPagination(f.Limit, f.Offset, result.Total),
	})
}

// sortColumns 是列表接口允许的排序方式。
var sortColumns = map[string]string{
	"title":    "title ASC",
	"newest":   "created_at DESC",
	"updated":  "updated_at DESC",
	"category": "category ASC, title ASC",
}

func listOptions(c *gin.Context, status model.ProcedureStatus) repository.ListOptions {
	limit := queryInt(c, "limit", 20)
	if limit < 1 || limit > service.MaxSearchLimit {
		limit = 20
	}
	offset := queryInt(c, "offset", 0)
	if page := queryInt(c, "page", 0); page > 0 {
		offset = (page - 1) * limit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{
		Category: model.Category(strings.ToUpper(c.Query("category"))),
		Status:   status,
		Search:   strings.TrimSpace(c.Query("search")),
		OrderBy:  sortColumns[c.Query("sort")],
		Limit:    limit,
		Offset:   offset,
	}
}

func (h *ProcedureHandler) list(c *gin.Context, opts repository.ListOptions) {
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

// List 返回 ACTIVE 流程列表。
func (h *ProcedureHandler) List(c *gin.Context) {
	h.list(c, listOptions(c, model.StatusActive))
}

// ByCategory 返回某一分类下的 ACTIVE 流程。
func (h *ProcedureHandler) ByCategory(c *gin.Context) {
	opts := listOptions(c, model.StatusActive)
	opts.Category = model.Category(strings.ToUpper(c.Param("category")))
	h.list(c, opts)
}

// Categories 返回所有分类及其流程数。
func (h *ProcedureHandler) Categories(c *gin.Context) {
	categories, err := h.procedureService.Categories(c.Request.Context())
	if err != nil {
		log.Errorf("Categories: error: %v", err)
		fail(c, http.StatusInternalServerError, "获取分类失败")
		return
	}
	success(c, "success", categories)
}

// Popular 返回被聊天引用最多的流程。
func (h *ProcedureHandler) Popular(c *gin.Context) {
	procedures, err := h.procedureService.Popular(c.Request.Context())
	if err != nil {
		log.Errorf("Popular: error: %v", err)
		fail(c, http.StatusInternalServerError, "获取热门流程失败")
		return
	}
	success(c, "success", procedures)
}

// procedureError 把服务层错误映射为 HTTP 状态码。
func procedureError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProcedureNotFound):
		fail(c, http.StatusNotFound, "流程不存在")
	case errors.Is(err, service.ErrInvalidProcedure):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSlugTaken):
		fail(c, http.StatusConflict, err.Error())
	default:
		log.Errorf("Procedure: error: %v", err)
		fail(c, http.StatusInternalServerError, "服务器内部错误")
	}
}

// visible 未上线的流程只对能维护目录的用户可见。
func visible(c *gin.Context, p *model.Procedure) bool {
	if p.Status == model.StatusActive {
		return true
	}
	user, ok := middleware.CurrentUser(c)
	return ok && user.Role.CanManageContent()
}

// GetBySlug 按 slug 返回流程详情。
func (h *ProcedureHandler) GetBySlug(c *gin.Context) {
	p, err := h.procedureService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err == nil && !visible(c, p) {
		err = service.ErrProcedureNotFound
	}
	if err != nil {
		procedureError(c, err)
		return
	}
	success(c, "success", p)
}

// GetByID 按 ID 返回流程详情。
func (h *ProcedureHandler) GetByID(c *gin.Context) {
	p, err := h.procedureService.GetByID(c.Request.Context(), c.Param("id"))
	if err == nil && !visible(c, p) {
		err = service.ErrProcedureNotFound
	}
	if err != nil {
		procedureError(c, err)
		return
	}
	success(c, "success", p)
}

// Related 返回同分类的其他流程。
func (h *ProcedureHandler) Related(c *gin.Context) {
	procedures, err := h.procedureService.Related(c.Request.Context(), c.Param("id"))
	if err != nil {
		procedureError(c, err)
		return
	}
	success(c, "success", procedures)
}

// Offices 返回办理该流程的办公室。
func (h *ProcedureHandler) Offices(c *gin.Context) {
	offices, err := h.procedureService.Offices(c.Request.Context(), c.Param("id"))
	if err != nil {
		procedureError(c, err)
		return
	}
	success(c, "success", offices)
}
