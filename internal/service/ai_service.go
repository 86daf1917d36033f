package service

import (
	"context"
	"strings"
	"time"

	"matesl-go/internal/model"
	"matesl-go/internal/provider"
	"matesl-go/internal/repository"
	"matesl-go/pkg/log"
	"matesl-go/pkg/metrics"
)

// 编排器常量
const (
	ErrNoModelsAvailable = "no models available"
	cachedSuffix         = " (cached)"
	DefaultCacheTTL      = time.Hour
)

// AIService 是 AI 编排器：先查缓存，再按固定顺序调用主、备提供方，成功结果写回缓存。
type AIService interface {
	Process(ctx context.Context, req model.AIRequest) model.ProcessingResult
	ModelStatus() []model.ModelStatus
	ClearCache(ctx context.Context, pattern string) (int64, error)
}

type aiService struct {
	primary   provider.Provider
	secondary provider.Provider
	cache     repository.AICacheRepository
	ttl       time.Duration
}

// NewAIService 创建编排器。primary 为 OpenAI 类提供方，secondary 为 HuggingFace 类提供方。
func NewAIService(primary, secondary provider.Provider, cache repository.AICacheRepository, ttl time.Duration) AIService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &aiService{primary: primary, secondary: secondary, cache: cache, ttl: ttl}
}

// Process 处理一条消息。缓存读写失败只记录日志，不影响结果。
func (s *aiService) Process(ctx context.Context, req model.AIRequest) model.ProcessingResult {
	m := metrics.Global()
	key := repository.AICacheKey(req.Message, req.Language)

	// 1. 查缓存
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warnf("[AIService] 读取缓存失败: %v", err)
	}
	if cached != nil {
		m.CacheHits.Inc()
		cached.ModelUsed += cachedSuffix
		return *cached
	}
	m.CacheMisses.Inc()

	// 2. 选择主提供方，失败时尝试备用提供方
	var result model.ProcessingResult
	switch {
	case s.primary.Enabled():
		result = s.invoke(ctx, s.primary, req)
		if !result.Success && s.secondary.Enabled() {
			log.Infof("[AIService] %s 处理失败，回退到 %s: %s", s.primary.Name(), s.secondary.Name(), result.Error)
			result = s.invoke(ctx, s.secondary, req)
		}
	case s.secondary.Enabled():
		result = s.invoke(ctx, s.secondary, req)
	default:
		log.Warnf("[AIService] 没有可用的模型")
		return model.ProcessingResult{Success: false, Error: ErrNoModelsAvailable, ModelUsed: "none"}
	}

	// 3. 成功结果写缓存
	if result.Success {
		if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
			log.Warnf("[AIService] 写入缓存失败: %v", err)
		}
	}
	return result
}

func (s *aiService) invoke(ctx context.Context, p provider.Provider, req model.AIRequest) model.ProcessingResult {
	m := metrics.Global()
	start := time.Now()
	result := p.Generate(ctx, req)
	m.ProviderLatency.WithLabelValues(p.Kind()).Observe(time.Since(start).Seconds())

	outcome := metrics.OutcomeSuccess
	if !result.Success {
		outcome = metrics.OutcomeFailure
	}
	m.OrchestratorRequests.WithLabelValues(p.Kind(), outcome).Inc()
	return result
}

// ModelStatus 按偏好顺序返回模型状态。
func (s *aiService) ModelStatus() []model.ModelStatus {
	return []model.ModelStatus{provider.Status(s.primary), provider.Status(s.secondary)}
}

// ClearCache 删除匹配 pattern 的缓存键，pattern 为空时清除全部 AI 缓存。
// pattern 总是被限定在 ai: 键空间内。
func (s *aiService) ClearCache(ctx context.Context, pattern string) (int64, error) {
	if !strings.HasPrefix(pattern, repository.AICacheKeyPrefix) {
		pattern = repository.AICacheKeyPrefix + pattern
	}
	if pattern == repository.AICacheKeyPrefix {
		pattern += "*"
	}
	n, err := s.cache.Clear(ctx, pattern)
	if err != nil {
		log.Errorf("[AIService] 清除缓存失败: %v", err)
		return 0, err
	}
	log.Infof("[AIService] 已清除 %d 个缓存键", n)
	return n, nil
}
