package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"matesl-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// AICacheKeyPrefix 是 AI 响应缓存的键空间，只有编排器写入。
const AICacheKeyPrefix = "ai:"

// clearBatchSize 是 Clear 每轮 SCAN 的 COUNT 提示和每次 DEL 的键数。
const clearBatchSize = 100

// AICacheRepository 定义了 AI 处理结果缓存的操作接口。
type AICacheRepository interface {
	// Get 返回缓存的结果；未命中时返回 (nil, nil)。
	Get(ctx context.Context, key string) (*model.ProcessingResult, error)
	Set(ctx context.Context, key string, result model.ProcessingResult, ttl time.Duration) error
	// Clear 删除匹配 pattern 的全部键并返回删除数量。
	Clear(ctx context.Context, pattern string) (int64, error)
}

type redisAICacheRepository struct {
	redisClient *redis.Client
}

// NewAICacheRepository 创建一个新的 AICacheRepository 实例。
func NewAICacheRepository(redisClient *redis.Client) AICacheRepository {
	return &redisAICacheRepository{redisClient: redisClient}
}

// AICacheKey 由 (message, language) 派生缓存键，相同输入得到相同的键。
func AICacheKey(message string, language model.Language) string {
	payload, _ := json.Marshal(struct {
		Message  string         `json:"message"`
		Language model.Language `json:"language"`
	}{message, language})
	sum := sha256.Sum256(payload)
	return AICacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (r *redisAICacheRepository) Get(ctx context.Context, key string) (*model.ProcessingResult, error) {
	data, err := r.redisClient.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached result: %w", err)
	}
	var result model.ProcessingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}
	return &result, nil
}

func (r *redisAICacheRepository) Set(ctx context.Context, key string, result model.ProcessingResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

func (r *redisAICacheRepository) Clear(ctx context.Context, pattern string) (int64, error) {
	if pattern == "" {
		pattern = AICacheKeyPrefix + "*"
	}
	var deleted int64
	batch := make([]string, 0, clearBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.redisClient.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
		deleted += n
		batch = batch[:0]
		return nil
	}

	iter := r.redisClient.Scan(ctx, 0, pattern, clearBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatchSize {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}
