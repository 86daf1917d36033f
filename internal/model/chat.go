package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatSession 代表一次聊天会话。首条消息时惰性创建，删除时只置 IsActive=false。
type ChatSession struct {
	ID        string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    *uint         `gorm:"index" json:"userId,omitempty"`
	Language  Language      `gorm:"type:varchar(2)" json:"language"`
	IsActive  bool          `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `gorm:"index" json:"updatedAt"`
	Messages  []ChatMessage `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
}

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// OwnedBy 判断会话是否属于指定用户。匿名会话不属于任何请求。
func (s *ChatSession) OwnedBy(userID *uint) bool {
	if s.UserID == nil || userID == nil {
		return false
	}
	return *s.UserID == *userID
}

// ChatMessage 是会话中的一问一答，创建后不可修改。
type ChatMessage struct {
	ID             string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID      string            `gorm:"type:varchar(36);index;not null" json:"sessionId"`
	Message        string            `gorm:"type:text;not null" json:"message"`
	Response       string            `gorm:"type:text;not null" json:"response"`
	Confidence     float64           `json:"confidence"`
	Category       Category          `gorm:"type:varchar(32);index" json:"category"`
	Language       Language          `gorm:"type:varchar(2)" json:"language"`
	ProcedureID    *string           `gorm:"type:varchar(36);index" json:"procedureId,omitempty"`
	Intent         string            `gorm:"type:varchar(64)" json:"intent,omitempty"`
	Entities       []ExtractedEntity `gorm:"type:text;serializer:json" json:"entities,omitempty"`
	ModelUsed      string            `gorm:"type:varchar(64)" json:"modelUsed,omitempty"`
	ProcessingTime int64             `json:"processingTime"`
	CreatedAt      time.Time         `gorm:"index" json:"timestamp"`
	Procedure      *Procedure        `gorm:"foreignKey:ProcedureID" json:"procedure,omitempty"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
