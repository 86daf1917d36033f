package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/log"
	"matesl-go/pkg/nlp"

	"gorm.io/gorm"
)

// 聊天服务的错误
var (
	ErrProcessingFailed = errors.New("processing failed")
	ErrSessionNotFound  = errors.New("session not found or access denied")
	ErrEmptyMessage     = errors.New("message must not be empty")
	ErrExportFormat     = errors.New("unsupported export format")
	ErrArchiveDisabled  = errors.New("export archive is not configured")
)

// 导出格式
const (
	ExportJSON = "json"
	ExportCSV  = "csv"
)

const (
	defaultHistoryLimit = 50
	contextMessages     = 3
	previewLength       = 100
)

// AIProcessor 把消息交给 AI 服务处理，由 aiclient.Client 实现。
type AIProcessor interface {
	Process(ctx context.Context, req model.AIRequest) (*model.ProcessingResult, error)
}

// ExportArchive 存放导出文件并返回下载链接，由 storage.Archive 实现。
type ExportArchive interface {
	Put(ctx context.Context, objectName, contentType string, data []byte) (string, error)
}

// SendMessageInput 是发送消息的输入。UserID 为 nil 表示匿名用户。
type SendMessageInput struct {
	Message   string
	SessionID string
	UserID    *uint
	Language  model.Language
}

// ProcedureRef 是回答所引用流程的摘要。
type ProcedureRef struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Slug     string         `json:"slug"`
	Category model.Category `json:"category"`
}

// MessageMetadata 是回答的处理信息。
type MessageMetadata struct {
	ProcessingTime int64  `json:"processingTime"`
	ModelUsed      string `json:"modelUsed"`
}

// SendMessageResult 是发送消息后返回给客户端的投影。
type SendMessageResult struct {
	MessageID        string                  `json:"messageId"`
	SessionID        string                  `json:"sessionId"`
	Response         string                  `json:"response"`
	Confidence       float64                 `json:"confidence"`
	Category         model.Category          `json:"category"`
	Language         model.Language          `json:"language"`
	Procedure        *ProcedureRef           `json:"procedure,omitempty"`
	SuggestedActions []model.SuggestedAction `json:"suggestedActions"`
	Metadata         MessageMetadata         `json:"metadata"`
}

// HistoryResult 是会话历史的一页。
type HistoryResult struct {
	Messages []model.ChatMessage `json:"messages"`
	Total    int64               `json:"total"`
	HasMore  bool                `json:"hasMore"`
}

// ExportInput 指定导出范围与格式。SessionID 为空时导出全部会话。
type ExportInput struct {
	UserID    uint
	SessionID string
	Format    string
}

// ExportResult 是导出内容。
type ExportResult struct {
	Format      string
	ContentType string
	FileName    string
	Data        []byte
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageResult, error)
	History(ctx context.Context, sessionID string, userID *uint, limit, offset int) (*HistoryResult, error)
	Sessions(ctx context.Context, userID *uint) ([]repository.SessionSummary, error)
	DeleteSession(ctx context.Context, sessionID string, userID *uint) error
	Export(ctx context.Context, in ExportInput) (*ExportResult, error)
	// ExportLink 导出后上传到对象存储并返回限时下载链接。
	ExportLink(ctx context.Context, in ExportInput) (string, error)
}

type chatService struct {
	chatRepo      repository.ChatRepository
	procedureRepo repository.ProcedureRepository
	ai            AIProcessor
	archive       ExportArchive // 为 nil 时不支持链接导出
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(chatRepo repository.ChatRepository, procedureRepo repository.ProcedureRepository, ai AIProcessor, archive ExportArchive) ChatService {
	return &chatService{
		chatRepo:      chatRepo,
		procedureRepo: procedureRepo,
		ai:            ai,
		archive:       archive,
	}
}

// SendMessage 解析会话、调用 AI 服务并持久化一问一答。
func (s *chatService) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageResult, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	lang := in.Language
	if lang == "" {
		lang = model.Language(nlp.DetectLanguage(message))
	}

	// 1. 解析或惰性创建会话
	session, err := s.resolveSession(ctx, in.SessionID, in.UserID, lang)
	if err != nil {
		return nil, err
	}

	// 2. 调用 AI 服务，附带最近几轮对话
	req := model.AIRequest{Message: message, Language: lang, SessionID: session.ID}
	if previous := s.previousMessages(ctx, session.ID); len(previous) > 0 {
		req.Context = &model.AIContext{PreviousMessages: previous}
	}
	result, err := s.ai.Process(ctx, req)
	if err != nil {
		log.Errorf("[ChatService] AI 服务处理失败, session: %s, error: %v", session.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}
	resp := result.Response

	// 3. 持久化消息
	category := resp.Category
	if !category.Valid() {
		category = model.CategoryOther
	}
	msg := &model.ChatMessage{
		SessionID:      session.ID,
		Message:        message,
		Response:       resp.Message,
		Confidence:     resp.Confidence,
		Category:       category,
		Language:       lang,
		Intent:         resp.Intent,
		Entities:       resp.Entities,
		ModelUsed:      result.ModelUsed,
		ProcessingTime: result.ProcessingTime,
	}
	ref := s.procedureRef(ctx, resp.ProcedureID)
	if ref != nil {
		msg.ProcedureID = &ref.ID
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		log.Errorf("[ChatService] 保存消息失败, session: %s, error: %v", session.ID, err)
		return nil, err
	}
	if err := s.chatRepo.TouchSession(ctx, session.ID); err != nil {
		log.Warnf("[ChatService] 更新会话时间失败: %v", err)
	}

	actions := resp.SuggestedActions
	if actions == nil {
		actions = []model.SuggestedAction{}
	}
	return &SendMessageResult{
		MessageID:        msg.ID,
		SessionID:        session.ID,
		Response:         resp.Message,
		Confidence:       resp.Confidence,
		Category:         category,
		Language:         lang,
		Procedure:        ref,
		SuggestedActions: actions,
		Metadata: MessageMetadata{
			ProcessingTime: result.ProcessingTime,
			ModelUsed:      result.ModelUsed,
		},
	}, nil
}

// resolveSession 返回可继续使用的会话；未知、已删除、匿名或属于其他用户的会话 ID 会得到一个新会话。
func (s *chatService) resolveSession(ctx context.Context, sessionID string, userID *uint, lang model.Language) (*model.ChatSession, error) {
	if sessionID != "" {
		session, err := s.chatRepo.FindSession(ctx, sessionID)
		switch {
		case err == nil && session.IsActive && session.OwnedBy(userID):
			return session, nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
		log.Infof("[ChatService] 会话 %s 不可用，创建新会话", sessionID)
	}

	session := &model.ChatSession{UserID: userID, Language: lang, IsActive: true}
	if err := s.chatRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *chatService) previousMessages(ctx context.Context, sessionID string) []string {
	recent, err := s.chatRepo.RecentMessages(ctx, sessionID, contextMessages)
	if err != nil {
		log.Warnf("[ChatService] 加载最近消息失败: %v", err)
		return nil
	}
	out := make([]string, 0, len(recent)*2)
	for _, m := range recent {
		out = append(out, "User: "+m.Message, "Assistant: "+m.Response)
	}
	return out
}

// procedureRef 查找回答引用的流程；流程不存在时不关联。
func (s *chatService) procedureRef(ctx context.Context, procedureID string) *ProcedureRef {
	if procedureID == "" {
		return nil
	}
	p, err := s.procedureRepo.FindByID(ctx, procedureID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[ChatService] 查询引用流程失败: %v", err)
		}
		return nil
	}
	return &ProcedureRef{ID: p.ID, Title: p.Title, Slug: p.Slug, Category: p.Category}
}

// ownedSession 返回属于 userID 的会话，否则返回 ErrSessionNotFound。
func (s *chatService) ownedSession(ctx context.Context, sessionID string, userID *uint) (*model.ChatSession, error) {
	session, err := s.chatRepo.FindSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if !session.OwnedBy(userID) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// History 返回会话消息，按时间升序。
func (s *chatService) History(ctx context.Context, sessionID string, userID *uint, limit, offset int) (*HistoryResult, error) {
	if _, err := s.ownedSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	msgs, total, err := s.chatRepo.Messages(ctx, sessionID, offset, limit)
	if err != nil {
		return nil, err
	}
	return &HistoryResult{
		Messages: msgs,
		Total:    total,
		HasMore:  total > int64(offset+limit),
	}, nil
}

// Sessions 返回活跃会话，最后一条消息截断为预览。
func (s *chatService) Sessions(ctx context.Context, userID *uint) ([]repository.SessionSummary, error) {
	sessions, err := s.chatRepo.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].LastMessage = truncateRunes(sessions[i].LastMessage, previewLength)
	}
	return sessions, nil
}

// DeleteSession 软删除会话。不属于调用者的会话不做任何修改。
func (s *chatService) DeleteSession(ctx context.Context, sessionID string, userID *uint) error {
	if _, err := s.ownedSession(ctx, sessionID, userID); err != nil {
		return err
	}
	log.Infof("[ChatService] 删除会话 %s", sessionID)
	return s.chatRepo.DeactivateSession(ctx, sessionID)
}

// Export 导出用户的聊天记录。
func (s *chatService) Export(ctx context.Context, in ExportInput) (*ExportResult, error) {
	format := strings.ToLower(in.Format)
	if format == "" {
		format = ExportJSON
	}
	if format != ExportJSON && format != ExportCSV {
		return nil, ErrExportFormat
	}

	uid := in.UserID
	var msgs []model.ChatMessage
	var err error
	if in.SessionID != "" {
		if _, err = s.ownedSession(ctx, in.SessionID, &uid); err != nil {
			return nil, err
		}
		msgs, _, err = s.chatRepo.Messages(ctx, in.SessionID, 0, -1)
	} else {
		msgs, err = s.chatRepo.UserMessages(ctx, in.UserID)
	}
	if err != nil {
		return nil, err
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	if format == ExportCSV {
		return &ExportResult{
			Format:      ExportCSV,
			ContentType: "text/csv; charset=utf-8",
			FileName:    fmt.Sprintf("chat-history-%d-%s.csv", in.UserID, stamp),
			Data:        []byte(ChatCSV(msgs)),
		}, nil
	}

	data, err := json.Marshal(chatJSON(msgs))
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Format:      ExportJSON,
		ContentType: "application/json",
		FileName:    fmt.Sprintf("chat-history-%d-%s.json", in.UserID, stamp),
		Data:        data,
	}, nil
}

func (s *chatService) ExportLink(ctx context.Context, in ExportInput) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}
	export, err := s.Export(ctx, in)
	if err != nil {
		return "", err
	}
	objectName := fmt.Sprintf("users/%d/%s", in.UserID, export.FileName)
	return s.archive.Put(ctx, objectName, export.ContentType, export.Data)
}

// ChatCSV 渲染 CSV：消息与回答总是加引号，内部引号加倍。
func ChatCSV(msgs []model.ChatMessage) string {
	var b strings.Builder
	b.WriteString("Timestamp,Session ID,Message,Response,Category,Confidence")
	for _, m := range msgs {
		b.WriteByte('\n')
		b.WriteString(m.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"))
		b.WriteByte(',')
		b.WriteString(m.SessionID)
		b.WriteByte(',')
		b.WriteString(quoteCSV(m.Message))
		b.WriteByte(',')
		b.WriteString(quoteCSV(m.Response))
		b.WriteByte(',')
		b.WriteString(string(m.Category))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(m.Confidence, 'f', -1, 64))
	}
	return b.String()
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

type exportedMessage struct {
	Timestamp   time.Time      `json:"timestamp"`
	Message     string         `json:"message"`
	Response    string         `json:"response"`
	Category    model.Category `json:"category"`
	ProcedureID *string        `json:"procedureId,omitempty"`
}

type exportedSession struct {
	SessionID string            `json:"sessionId"`
	Messages  []exportedMessage `json:"messages"`
}

type exportDocument struct {
	ExportDate    time.Time         `json:"exportDate"`
	TotalMessages int               `json:"totalMessages"`
	Sessions      []exportedSession `json:"sessions"`
}

// chatJSON 按会话分组，保持会话首次出现的顺序。
func chatJSON(msgs []model.ChatMessage) exportDocument {
	doc := exportDocument{ExportDate: time.Now().UTC(), TotalMessages: len(msgs), Sessions: []exportedSession{}}
	index := make(map[string]int)
	for _, m := range msgs {
		i, ok := index[m.SessionID]
		if !ok {
			i = len(doc.Sessions)
			index[m.SessionID] = i
			doc.Sessions = append(doc.Sessions, exportedSession{SessionID: m.SessionID})
		}
		doc.Sessions[i].Messages = append(doc.Sessions[i].Messages, exportedMessage{
			Timestamp:   m.CreatedAt,
			Message:     m.Message,
			Response:    m.Response,
			Category:    m.Category,
			ProcedureID: m.ProcedureID,
		})
	}
	return doc
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
