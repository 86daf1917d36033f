package repository

import (
	"context"
	"time"

	"matesl-go/internal/model"

	"gorm.io/gorm"
)

// SessionSummary 是会话列表中的一项。
type SessionSummary struct {
	model.ChatSession
	LastMessage  string `json:"lastMessage"`
	MessageCount int64  `json:"messageCount"`
}

// ChatRepository 定义了聊天会话与消息的持久化操作。
type ChatRepository interface {
	CreateSession(ctx context.Context, session *model.ChatSession) error
	FindSession(ctx context.Context, id string) (*model.ChatSession, error)
	TouchSession(ctx context.Context, id string) error
	DeactivateSession(ctx context.Context, id string) error
	ActiveSessions(ctx context.Context, userID *uint) ([]SessionSummary, error)
	CreateMessage(ctx context.Context, msg *model.ChatMessage) error
	Messages(ctx context.Context, sessionID string, offset, limit int) ([]model.ChatMessage, int64, error)
	RecentMessages(ctx context.Context, sessionID string, n int) ([]model.ChatMessage, error)
	UserMessages(ctx context.Context, userID uint) ([]model.ChatMessage, error)
	ListMessages(ctx context.Context, offset, limit int) ([]model.ChatMessage, int64, error)
	CountSessions(ctx context.Context) (int64, error)
	CountMessagesSince(ctx context.Context, since time.Time) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateSession(ctx context.Context, session *model.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *chatRepository) FindSession(ctx context.Context, id string) (*model.ChatSession, error) {
	var s model.ChatSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// TouchSession 刷新 updated_at，使会话列表按最近活动排序。
func (r *chatRepository) TouchSession(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

// DeactivateSession 软删除会话，消息保留。
func (r *chatRepository) DeactivateSession(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// ActiveSessions 返回用户的活跃会话，最近活动的在前，附带最后一条消息和消息数。匿名调用返回空列表。
func (r *chatRepository) ActiveSessions(ctx context.Context, userID *uint) ([]SessionSummary, error) {
	if userID == nil {
		return []SessionSummary{}, nil
	}
	var sessions []model.ChatSession
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND user_id = ?", true, *userID).
		Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summary := SessionSummary{ChatSession: s}
		if err := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
			Where("session_id = ?", s.ID).Count(&summary.MessageCount).Error; err != nil {
			return nil, err
		}
		if summary.MessageCount > 0 {
			var last model.ChatMessage
			if err := r.db.WithContext(ctx).Where("session_id = ?", s.ID).
				Order("created_at DESC").First(&last).Error; err != nil {
				return nil, err
			}
			summary.LastMessage = last.Message
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// CreateMessage 追加一条消息；消息创建后不再修改。
func (r *chatRepository) CreateMessage(ctx context.Context, msg *model.ChatMessage) error {
	return r.db.WithContext(ctx).Omit("Procedure").Create(msg).Error
}

// Messages 按时间升序分页返回会话消息。
func (r *chatRepository) Messages(ctx context.Context, sessionID string, offset, limit int) ([]model.ChatMessage, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("session_id = ?", sessionID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var msgs []model.ChatMessage
	err := r.db.WithContext(ctx).
		Preload("Procedure").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// RecentMessages 返回会话最近 n 条消息，按时间升序。
func (r *chatRepository) RecentMessages(ctx context.Context, sessionID string, n int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(n).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// UserMessages 返回用户全部会话（含已删除）的消息，用于导出。
func (r *chatRepository) UserMessages(ctx context.Context, userID uint) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_sessions ON chat_sessions.id = chat_messages.session_id").
		Where("chat_sessions.user_id = ?", userID).
		Order("chat_messages.created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

// ListMessages 供管理员分页浏览全部对话，最新的在前。
func (r *chatRepository) ListMessages(ctx context.Context, offset, limit int) ([]model.ChatMessage, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.ChatMessage{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var msgs []model.ChatMessage
	err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *chatRepository) CountSessions(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ChatSession{}).Count(&n).Error
	return n, err
}

func (r *chatRepository) CountMessagesSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ChatMessage{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}
