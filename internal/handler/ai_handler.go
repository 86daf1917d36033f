package handler

import (
	"net/http"
	"strings"

	"matesl-go/internal/model"
	"matesl-go/internal/service"
	"matesl-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AIHandler 是 AI 服务进程对外暴露的 API。
type AIHandler struct {
	aiService service.AIService
}

// NewAIHandler 创建一个新的 AIHandler 实例。
func NewAIHandler(aiService service.AIService) *AIHandler {
	return &AIHandler{aiService: aiService}
}

// Process 处理一条消息。提供方失败时仍返回 200，success=false 写在结果中。
func (h *AIHandler) Process(c *gin.Context) {
	var req model.AIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, "消息不能为空")
		return
	}
	if req.Language != "" {
		lang, ok := model.ParseLanguage(string(req.Language))
		if !ok {
			fail(c, http.StatusBadRequest, "不支持的语言")
			return
		}
		req.Language = lang
	}

	result := h.aiService.Process(c.Request.Context(), req)
	message := "success"
	if !result.Success {
		message = result.Error
	}
	success(c, message, result)
}

// ModelStatus 列出已配置的提供方。
func (h *AIHandler) ModelStatus(c *gin.Context) {
	success(c, "success", h.aiService.ModelStatus())
}

// ClearCache 按模式删除缓存的 AI 响应。
func (h *AIHandler) ClearCache(c *gin.Context) {
	n, err := h.aiService.ClearCache(c.Request.Context(), c.Query("pattern"))
	if err != nil {
		log.Errorf("[AIHandler] 清除缓存失败: %v", err)
		fail(c, http.StatusInternalServerError, "清除缓存失败")
		return
	}
	success(c, "Cache cleared", gin.H{"cleared": n})
}
