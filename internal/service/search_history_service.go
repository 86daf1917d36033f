package service

import (
	"context"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/tasks"
)

// SearchHistoryService 把检索事件写入 search_histories。
// 它既是 Kafka 消费者的处理器，也可以在未启用 Kafka 时直接作为 SearchEventPublisher。
type SearchHistoryService struct {
	repo repository.SearchHistoryRepository
}

// NewSearchHistoryService 创建一个新的 SearchHistoryService 实例。
func NewSearchHistoryService(repo repository.SearchHistoryRepository) *SearchHistoryService {
	return &SearchHistoryService{repo: repo}
}

// HandleSearchEvent 持久化一条检索事件。
func (s *SearchHistoryService) HandleSearchEvent(ctx context.Context, event tasks.SearchEvent) error {
	return s.repo.Create(ctx, &model.SearchHistory{
		UserID:       event.UserID,
		Query:        event.Query,
		Category:     model.Category(event.Category),
		Language:     model.Language(event.Language),
		ResultsCount: event.ResultsCount,
		CreatedAt:    event.SearchedAt,
	})
}

// PublishSearchEvent 同步写库。
func (s *SearchHistoryService) PublishSearchEvent(ctx context.Context, event tasks.SearchEvent) error {
	return s.HandleSearchEvent(ctx, event)
}

// History 返回用户的检索记录。
func (s *SearchHistoryService) History(ctx context.Context, userID uint, offset, limit int) ([]model.SearchHistory, int64, error) {
	return s.repo.FindByUser(ctx, userID, offset, limit)
}
