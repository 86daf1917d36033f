package model

import (
	"strings"
	"time"
)

// EsProcedureDocument 定义了存储在 Elasticsearch procedures 索引中的文档结构。
// 检索谓词与 SQL 后端一致：title 子串、tags 词干、keywords 原词。
type EsProcedureDocument struct {
	ProcedureID string    `json:"procedure_id"`
	Title       string    `json:"title"`    // 小写，keyword 类型，用于 wildcard 子串匹配
	TitleSi     string    `json:"title_si"` // 本地化标题，同样用于子串匹配
	TitleTa     string    `json:"title_ta"`
	Description string    `json:"description"` // text 类型，仅用于展示和将来的全文检索
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Keywords    []string  `json:"keywords"`  // 小写原词
	TagStems    []string  `json:"tag_stems"` // 标签词干
	CreatedAt   time.Time `json:"created_at"`
}

// NewEsProcedureDocument 由 Procedure（需已预加载 Terms）构造索引文档。
func NewEsProcedureDocument(p *Procedure) EsProcedureDocument {
	doc := EsProcedureDocument{
		ProcedureID: p.ID,
		Title:       strings.ToLower(p.Title),
		TitleSi:     p.TitleSi,
		TitleTa:     p.TitleTa,
		Description: p.Description,
		Category:    string(p.Category),
		Status:      string(p.Status),
		Keywords:    []string{},
		TagStems:    []string{},
		CreatedAt:   p.CreatedAt,
	}
	terms := p.Terms
	if len(terms) == 0 {
		terms = NewProcedureTerms(p.Keywords, p.SearchTags)
	}
	for _, t := range terms {
		switch t.Kind {
		case TermKeyword:
			doc.Keywords = append(doc.Keywords, t.Term)
		case TermTag:
			doc.TagStems = append(doc.TagStems, t.Stem)
		}
	}
	return doc
}
