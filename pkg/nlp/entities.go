package nlp

import (
	"regexp"
	"strings"
)

// Entity 是从用户消息中抽取的实体。
type Entity struct {
	Type       string   `json:"type"`
	Value      string   `json:"value"`
	Confidence float64  `json:"confidence"`
	Position   Position `json:"position"`
}

// Position 是实体在原文中的字节区间 [Start, End)。
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

const (
	EntityPhone  = "phone_number"
	EntityEmail  = "email"
	EntityAmount = "amount"
)

var (
	phonePattern  = regexp.MustCompile(`(\+94|0)[1-9][0-9]{8}`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	amountPattern = regexp.MustCompile(`(?i)(LKR|Rs\.?)\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`)
)

var entityRules = []struct {
	kind       string
	pattern    *regexp.Regexp
	confidence float64
}{
	{EntityPhone, phonePattern, 0.9},
	{EntityEmail, emailPattern, 0.95},
	{EntityAmount, amountPattern, 0.85},
}

// ExtractEntities 用固定正则抽取电话、邮箱和金额。
// 位置取该值在原文中首次出现的位置。
func ExtractEntities(text string) []Entity {
	entities := make([]Entity, 0)
	for _, rule := range entityRules {
		for _, m := range rule.pattern.FindAllString(text, -1) {
			start := strings.Index(text, m)
			entities = append(entities, Entity{
				Type:       rule.kind,
				Value:      m,
				Confidence: rule.confidence,
				Position:   Position{Start: start, End: start + len(m)},
			})
		}
	}
	return entities
}
