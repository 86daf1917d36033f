package repository

import (
	"context"

	"matesl-go/internal/model"

	"gorm.io/gorm"
)

// SearchHistoryRepository 保存并查询检索记录。
type SearchHistoryRepository interface {
	Create(ctx context.Context, entry *model.SearchHistory) error
	FindByUser(ctx context.Context, userID uint, offset, limit int) ([]model.SearchHistory, int64, error)
}

type searchHistoryRepository struct {
	db *gorm.DB
}

// NewSearchHistoryRepository 创建一个新的 SearchHistoryRepository 实例。
func NewSearchHistoryRepository(db *gorm.DB) SearchHistoryRepository {
	return &searchHistoryRepository{db: db}
}

func (r *searchHistoryRepository) Create(ctx context.Context, entry *model.SearchHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByUser 返回用户的检索记录，最新的在前。
func (r *searchHistoryRepository) FindByUser(ctx context.Context, userID uint, offset, limit int) ([]model.SearchHistory, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.SearchHistory{}).Where("user_id = ?", userID)
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []model.SearchHistory
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
