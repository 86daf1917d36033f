package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"matesl-go/internal/middleware"
	"matesl-go/internal/model"
	"matesl-go/internal/service"
	"matesl-go/pkg/log"
	"matesl-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源，鉴权依赖路径中的 token
	},
}

// ChatHandler 负责处理聊天 API 和 WebSocket 连接。
type ChatHandler struct {
	chatService service.ChatService
	userService service.UserService
	jwtManager  *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, userService service.UserService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// SendMessageRequest 定义了发送消息 API 的请求体结构。
type SendMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	Language  string `json:"language"`
}

func (r SendMessageRequest) input(userID *uint) (service.SendMessageInput, bool) {
	in := service.SendMessageInput{
		Message:   r.Message,
		SessionID: r.SessionID,
		UserID:    userID,
	}
	if r.Language != "" {
		lang, ok := model.ParseLanguage(r.Language)
		if !ok {
			return in, false
		}
		in.Language = lang
	}
	return in, true
}

// SendMessage 处理一条聊天消息。匿名用户也可以使用。
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, "消息不能为空")
		return
	}
	in, ok := req.input(middleware.CurrentUserID(c))
	if !ok {
		fail(c, http.StatusBadRequest, "不支持的语言")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), in)
	if err != nil {
		chatError(c, err)
		return
	}
	success(c, "success", result)
}

func chatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, "消息不能为空")
	case errors.Is(err, service.ErrSessionNotFound):
		fail(c, http.StatusNotFound, "会话不存在或无权访问")
	case errors.Is(err, service.ErrExportFormat):
		fail(c, http.StatusBadRequest, "导出格式只支持 json 或 csv")
	case errors.Is(err, service.ErrArchiveDisabled):
		fail(c, http.StatusServiceUnavailable, "导出归档未启用")
	case errors.Is(err, service.ErrProcessingFailed):
		fail(c, http.StatusInternalServerError, "消息处理失败，请稍后重试")
	default:
		log.Errorf("Chat: error: %v", err)
		fail(c, http.StatusInternalServerError, "服务器内部错误")
	}
}

// Sessions 返回当前用户（或匿名）的活跃会话。
func (h *ChatHandler) Sessions(c *gin.Context) {
	sessions, err := h.chatService.Sessions(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		chatError(c, err)
		return
	}
	success(c, "success", sessions)
}

// History 返回会话的消息历史。
func (h *ChatHandler) History(c *gin.Context) {
	result, err := h.chatService.History(
		c.Request.Context(),
		c.Param("id"),
		middleware.CurrentUserID(c),
		queryInt(c, "limit", 0),
		queryInt(c, "offset", 0),
	)
	if err != nil {
		chatError(c, err)
		return
	}
	success(c, "success", result)
}

// DeleteSession 软删除会话。
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	if err := h.chatService.DeleteSession(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		chatError(c, err)
		return
	}
	success(c, "Session deleted", nil)
}

// Export 导出当前用户的聊天记录。delivery=link 时上传到对象存储并返回下载链接。
func (h *ChatHandler) Export(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "需要登录")
		return
	}
	in := service.ExportInput{
		UserID:    user.ID,
		SessionID: c.Query("sessionId"),
		Format:    c.DefaultQuery("format", service.ExportJSON),
	}

	if c.Query("delivery") == "link" {
		url, err := h.chatService.ExportLink(c.Request.Context(), in)
		if err != nil {
			chatError(c, err)
			return
		}
		success(c, "success", gin.H{"url": url})
		return
	}

	export, err := h.chatService.Export(c.Request.Context(), in)
	if err != nil {
		chatError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

// wsReply 是 WebSocket 上每条回复的结构。
type wsReply struct {
	Type      string                     `json:"type"`
	Data      *service.SendMessageResult `json:"data,omitempty"`
	Error     string                     `json:"error,omitempty"`
	Timestamp int64                      `json:"timestamp"`
}

// Handle 处理一个传入的 WebSocket 连接。每个文本帧是一条消息，
// 每个回复是与 SendMessage 相同的投影。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyAccessToken(tokenString)
	if err != nil {
		fail(c, http.StatusUnauthorized, "无效的 token")
		return
	}
	if revoked, err := h.userService.IsTokenRevoked(c.Request.Context(), tokenString); err != nil || revoked {
		fail(c, http.StatusUnauthorized, "token 已失效")
		return
	}
	user, err := h.userService.GetProfile(claims.UserID)
	if err != nil {
		fail(c, http.StatusUnauthorized, "用户不存在")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 连接已建立，用户: %d", user.ID)

	userID := user.ID
	sessionID := ""
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		// 文本帧可以是纯文本，也可以是 {"message","sessionId","language"}
		req := SendMessageRequest{Message: string(message), SessionID: sessionID}
		if len(message) > 0 && message[0] == '{' {
			var parsed SendMessageRequest
			if err := json.Unmarshal(message, &parsed); err == nil {
				req = parsed
				if req.SessionID == "" {
					req.SessionID = sessionID
				}
			}
		}

		reply := wsReply{Type: "message"}
		in, ok := req.input(&userID)
		if !ok {
			reply = wsReply{Type: "error", Error: "不支持的语言"}
		} else if result, err := h.chatService.SendMessage(c.Request.Context(), in); err != nil {
			log.Errorf("WebSocket 消息处理失败: %v", err)
			reply = wsReply{Type: "error", Error: err.Error()}
		} else {
			sessionID = result.SessionID
			reply.Data = result
		}
		reply.Timestamp = time.Now().UnixMilli()

		b, _ := json.Marshal(reply)
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Warnf("WebSocket 写入失败: %v", err)
			return
		}
	}
}
