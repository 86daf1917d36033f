package repository

import (
	"context"
	"encoding/json"
	"strings"

	"matesl-go/internal/model"
	"matesl-go/pkg/es"

	"github.com/elastic/go-elasticsearch/v8"
)

// ProcedureIndex 是流程检索的 Elasticsearch 后端，只返回命中的 ID，详情仍从数据库读取。
type ProcedureIndex interface {
	Search(ctx context.Context, f ProcedureFilter) ([]string, int64, error)
	Index(ctx context.Context, p *model.Procedure) error
	Delete(ctx context.Context, id string) error
}

type esProcedureIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewProcedureIndex 创建基于 Elasticsearch 的 ProcedureIndex。
func NewProcedureIndex(client *elasticsearch.Client, indexName string) ProcedureIndex {
	return &esProcedureIndex{client: client, indexName: indexName}
}

func (i *esProcedureIndex) Search(ctx context.Context, f ProcedureFilter) ([]string, int64, error) {
	res, err := es.Search(ctx, i.client, i.indexName, buildProcedureQuery(f))
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		var src struct {
			ProcedureID string `json:"procedure_id"`
		}
		if err := json.Unmarshal(hit.Source, &src); err != nil || src.ProcedureID == "" {
			ids = append(ids, hit.ID)
			continue
		}
		ids = append(ids, src.ProcedureID)
	}
	return ids, res.Total, nil
}

func (i *esProcedureIndex) Index(ctx context.Context, p *model.Procedure) error {
	return es.IndexDocument(ctx, i.client, i.indexName, p.ID, model.NewEsProcedureDocument(p))
}

func (i *esProcedureIndex) Delete(ctx context.Context, id string) error {
	return es.DeleteDocument(ctx, i.client, i.indexName, id)
}

// escapeWildcard 转义 wildcard 查询中的 * 和 ?。
func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}

// buildProcedureQuery 把与 SQL 后端相同的谓词表达为 bool 查询：
// filter 限定 ACTIVE 和分类，should 中任意一条命中即可，按创建时间倒序。
func buildProcedureQuery(f ProcedureFilter) map[string]interface{} {
	filter := []map[string]interface{}{
		{"term": map[string]interface{}{"status": string(model.StatusActive)}},
	}
	if f.Category != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"category": string(f.Category)},
		})
	}

	pattern := "*" + escapeWildcard(f.Query) + "*"
	should := []map[string]interface{}{
		{"wildcard": map[string]interface{}{"title": map[string]interface{}{"value": pattern}}},
	}
	switch f.Language {
	case model.LanguageSI:
		should = append(should, map[string]interface{}{
			"wildcard": map[string]interface{}{"title_si": map[string]interface{}{"value": pattern}},
		})
	case model.LanguageTA:
		should = append(should, map[string]interface{}{
			"wildcard": map[string]interface{}{"title_ta": map[string]interface{}{"value": pattern}},
		})
	}
	if len(f.Stems) > 0 {
		should = append(should, map[string]interface{}{"terms": map[string]interface{}{"tag_stems": f.Stems}})
	}
	if len(f.Tokens) > 0 {
		should = append(should, map[string]interface{}{"terms": map[string]interface{}{"keywords": f.Tokens}})
	}

	return map[string]interface{}{
		"from": f.Offset,
		"size": f.Limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter":               filter,
				"should":               should,
				"minimum_should_match": 1,
			},
		},
		"sort":    []map[string]interface{}{{"created_at": map[string]interface{}{"order": "desc"}}},
		"_source": []string{"procedure_id"},
	}
}
