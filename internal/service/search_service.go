// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"strings"
	"time"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/log"
	"matesl-go/pkg/metrics"
	"matesl-go/pkg/nlp"
	"matesl-go/pkg/tasks"

	"github.com/google/uuid"
)

// 检索参数的默认值与上限
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
	maxSuggestions     = 5
)

// SearchQuery 是一次目录检索的输入。UserID 仅用于记录检索历史。
type SearchQuery struct {
	Query    string
	Category model.Category
	Language model.Language
	Limit    int
	Offset   int
	UserID   *uint
}

// SearchResult 是检索结果。存储故障时 Degraded=true，Procedures 为空，Err 保留原始错误。
type SearchResult struct {
	Procedures  []model.Procedure `json:"procedures"`
	Total       int64             `json:"total"`
	Suggestions []string          `json:"suggestions"`
	Degraded    bool              `json:"degraded,omitempty"`
	Err         error             `json:"-"`
}

// SearchEventPublisher 接收检索事件，由 Kafka 生产者或直接写库的实现提供。
type SearchEventPublisher interface {
	PublishSearchEvent(ctx context.Context, event tasks.SearchEvent) error
}

// SearchService 接口定义了目录检索操作。Search 从不返回错误。
type SearchService interface {
	Search(ctx context.Context, q SearchQuery) SearchResult
	// RelevantProcedures 为 AI 回答检索上下文流程。
	RelevantProcedures(ctx context.Context, message string, limit int) []model.Procedure
}

type searchService struct {
	procedureRepo repository.ProcedureRepository
	index         repository.ProcedureIndex // 为 nil 时使用 SQL 后端
	publisher     SearchEventPublisher      // 为 nil 时不记录检索历史
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(procedureRepo repository.ProcedureRepository, index repository.ProcedureIndex, publisher SearchEventPublisher) SearchService {
	return &searchService{
		procedureRepo: procedureRepo,
		index:         index,
		publisher:     publisher,
	}
}

// NewProcedureFilter 规范化查询：小写、分词、词干化，并把 limit 夹到 [1, MaxSearchLimit]。
func NewProcedureFilter(q SearchQuery) repository.ProcedureFilter {
	query := strings.ToLower(strings.TrimSpace(q.Query))
	tokens := nlp.Unique(nlp.Tokenize(query))
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return repository.ProcedureFilter{
		Query:    query,
		Tokens:   tokens,
		Stems:    nlp.Unique(nlp.StemAll(tokens)),
		Category: q.Category,
		Language: q.Language,
		Limit:    limit,
		Offset:   offset,
	}
}

// Search 执行检索并附带建议词。
func (s *searchService) Search(ctx context.Context, q SearchQuery) SearchResult {
	f := NewProcedureFilter(q)
	log.Infof("[SearchService] 开始检索, query: '%s', category: '%s', limit: %d, offset: %d", f.Query, f.Category, f.Limit, f.Offset)

	procedures, total, err := s.find(ctx, f)
	if err != nil {
		log.Errorf("[SearchService] 检索失败，返回空结果: %v", err)
		metrics.Global().SearchDegraded.Inc()
		return SearchResult{
			Procedures:  []model.Procedure{},
			Suggestions: []string{},
			Degraded:    true,
			Err:         err,
		}
	}

	suggestions, err := s.procedureRepo.Suggest(ctx, f.Query, maxSuggestions)
	if err != nil {
		log.Warnf("[SearchService] 获取建议词失败: %v", err)
		suggestions = []string{}
	}

	s.record(ctx, q, f, len(procedures))
	log.Infof("[SearchService] 检索完成, 返回 %d / %d 条", len(procedures), total)
	return SearchResult{
		Procedures:  procedures,
		Total:       total,
		Suggestions: suggestions,
	}
}

func (s *searchService) find(ctx context.Context, f repository.ProcedureFilter) ([]model.Procedure, int64, error) {
	if s.index == nil {
		return s.procedureRepo.Search(ctx, f)
	}
	ids, total, err := s.index.Search(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	procedures, err := s.procedureRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return procedures, total, nil
}

// RelevantProcedures 检索最多 limit 个流程，失败时返回空切片。
func (s *searchService) RelevantProcedures(ctx context.Context, message string, limit int) []model.Procedure {
	f := NewProcedureFilter(SearchQuery{Query: message, Limit: limit})
	procedures, _, err := s.find(ctx, f)
	if err != nil {
		log.Errorf("[SearchService] 检索上下文流程失败: %v", err)
		metrics.Global().SearchDegraded.Inc()
		return []model.Procedure{}
	}
	return procedures
}

func (s *searchService) record(ctx context.Context, q SearchQuery, f repository.ProcedureFilter, results int) {
	if s.publisher == nil || f.Query == "" {
		return
	}
	lang := q.Language
	if lang == "" {
		lang = model.Language(nlp.DetectLanguage(f.Query))
	}
	event := tasks.SearchEvent{
		EventID:      uuid.NewString(),
		UserID:       q.UserID,
		Query:        strings.TrimSpace(q.Query),
		Category:     string(q.Category),
		Language:     string(lang),
		ResultsCount: results,
		SearchedAt:   time.Now(),
	}
	if err := s.publisher.PublishSearchEvent(ctx, event); err != nil {
		log.Warnf("[SearchService] 记录检索历史失败: %v", err)
	}
}
