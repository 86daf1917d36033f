// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"matesl-go/internal/config"
	"matesl-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ProcedureMapping 是 procedures 索引的映射。
// title 存小写 keyword，便于 wildcard 子串匹配；keywords/tag_stems 用 terms 求交。
const ProcedureMapping = `{
	"mappings": {
		"properties": {
			"procedure_id": { "type": "keyword" },
			"title":        { "type": "keyword" },
			"title_si":     { "type": "keyword" },
			"title_ta":     { "type": "keyword" },
			"description":  { "type": "text" },
			"category":     { "type": "keyword" },
			"status":       { "type": "keyword" },
			"keywords":     { "type": "keyword" },
			"tag_stems":    { "type": "keyword" },
			"created_at":   { "type": "date" }
		}
	}
}`

// NewClient 初始化 Elasticsearch 客户端并确保索引存在。
func NewClient(ctx context.Context, esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := EnsureIndex(ctx, client, esCfg.IndexName, ProcedureMapping); err != nil {
		return nil, err
	}
	return client, nil
}

// EnsureIndex 检查索引是否存在，如果不存在则按 mapping 创建。
func EnsureIndex(ctx context.Context, client *elasticsearch.Client, indexName, mapping string) error {
	res, err := client.Indices.Exists([]string{indexName}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = client.Indices.Create(
		indexName,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexDocument 以指定 ID 写入（覆盖）单个文档。
func IndexDocument(ctx context.Context, client *elasticsearch.Client, indexName, id string, doc interface{}) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: id,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
		return fmt.Errorf("failed to index document %s", id)
	}
	return nil
}

// DeleteDocument 删除文档，文档不存在不视为错误。
func DeleteDocument(ctx context.Context, client *elasticsearch.Client, indexName, id string) error {
	req := esapi.DeleteRequest{Index: indexName, DocumentID: id, Refresh: "true"}
	res, err := req.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to delete document %s: %s", id, res.Status())
	}
	return nil
}

// Hit 是一条搜索命中。
type Hit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// SearchResult 是 _search 响应中用到的部分。
type SearchResult struct {
	Total int64
	Hits  []Hit
}

// Search 执行查询并解析命中与总数。
func Search(ctx context.Context, client *elasticsearch.Client, indexName string, query map[string]interface{}) (*SearchResult, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(indexName),
		client.Search.WithBody(&buf),
		client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch returned an error: %s %s", res.Status(), string(body))
	}

	var esResponse struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []Hit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}
	return &SearchResult{Total: esResponse.Hits.Total.Value, Hits: esResponse.Hits.Hits}, nil
}
