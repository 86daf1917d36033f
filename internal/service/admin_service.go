package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/log"

	"gorm.io/gorm"
)

// ErrInvalidRole 表示角色不在枚举中。
var ErrInvalidRole = errors.New("invalid role")

// Page 是分页列表的通用响应结构。
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
}

// NewPage 根据 1 起始的页码构造分页结果。
func NewPage[T any](content []T, total int64, page, size int) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{Content: content, TotalElements: total, TotalPages: totalPages, Size: size, Number: page}
}

// Dashboard 是管理后台首页的统计数据。
type Dashboard struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalProcedures  int64 `json:"totalProcedures"`
	ActiveProcedures int64 `json:"activeProcedures"`
	TotalSessions    int64 `json:"totalSessions"`
	MessagesLast24h  int64 `json:"messagesLast24h"`
}

// AIAdmin 是 AI 服务的管理接口，由 aiclient.Client 实现。
type AIAdmin interface {
	ModelStatus(ctx context.Context) ([]model.ModelStatus, error)
	ClearCache(ctx context.Context, pattern string) (int64, error)
}

// AdminService 接口定义了所有管理员相关的业务操作。
type AdminService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	ListUsers(page, size int, search string) (Page[model.User], error)
	UpdateUserRole(userID uint, role model.Role) (*model.User, error)
	ListConversations(ctx context.Context, page, size int) (Page[model.ChatMessage], error)
	ClearAICache(ctx context.Context, pattern string) (int64, error)
	ModelStatus(ctx context.Context) ([]model.ModelStatus, error)
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	userRepo      repository.UserRepository
	procedureRepo repository.ProcedureRepository
	chatRepo      repository.ChatRepository
	ai            AIAdmin
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(userRepo repository.UserRepository, procedureRepo repository.ProcedureRepository, chatRepo repository.ChatRepository, ai AIAdmin) AdminService {
	return &adminService{
		userRepo:      userRepo,
		procedureRepo: procedureRepo,
		chatRepo:      chatRepo,
		ai:            ai,
	}
}

// Dashboard 汇总用户、流程与对话的数量。
func (s *adminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	var err error
	if d.TotalUsers, err = s.userRepo.Count(); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if d.TotalProcedures, d.ActiveProcedures, err = s.procedureRepo.Counts(ctx); err != nil {
		return nil, fmt.Errorf("count procedures: %w", err)
	}
	if d.TotalSessions, err = s.chatRepo.CountSessions(ctx); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	if d.MessagesLast24h, err = s.chatRepo.CountMessagesSince(ctx, time.Now().Add(-24*time.Hour)); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	return &d, nil
}

// ListUsers 分页获取用户列表，page 从 1 开始。
func (s *adminService) ListUsers(page, size int, search string) (Page[model.User], error) {
	page, size = normalizePage(page, size)
	users, total, err := s.userRepo.FindWithPagination((page-1)*size, size, search)
	if err != nil {
		return Page[model.User]{}, err
	}
	return NewPage(users, total, page, size), nil
}

// UpdateUserRole 修改用户角色。
func (s *adminService) UpdateUserRole(userID uint, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := s.userRepo.UpdateRole(userID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	log.Infof("[AdminService] 用户 %d 角色已修改为 %s", userID, role)
	return s.userRepo.FindByID(userID)
}

// ListConversations 分页浏览全部聊天消息，最新的在前。
func (s *adminService) ListConversations(ctx context.Context, page, size int) (Page[model.ChatMessage], error) {
	page, size = normalizePage(page, size)
	msgs, total, err := s.chatRepo.ListMessages(ctx, (page-1)*size, size)
	if err != nil {
		return Page[model.ChatMessage]{}, err
	}
	return NewPage(msgs, total, page, size), nil
}

func (s *adminService) ClearAICache(ctx context.Context, pattern string) (int64, error) {
	n, err := s.ai.ClearCache(ctx, pattern)
	if err != nil {
		log.Errorf("[AdminService] 清除 AI 缓存失败: %v", err)
		return 0, err
	}
	return n, nil
}

func (s *adminService) ModelStatus(ctx context.Context) ([]model.ModelStatus, error) {
	return s.ai.ModelStatus(ctx)
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > MaxSearchLimit {
		size = MaxSearchLimit
	}
	return page, size
}
