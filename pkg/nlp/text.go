// Package nlp 提供轻量的文本处理：分词、词干、语言识别、实体抽取。
package nlp

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// Tokenize 小写后按非字母数字切分。僧伽罗文与泰米尔文的元音符号属于 Mark 类，需要保留在词内。
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r))
	})
}

// Stem 使用 Snowball 英文词干算法；非 ASCII 词原样返回。
func Stem(token string) string {
	token = strings.ToLower(token)
	if token == "" || !isASCII(token) {
		return token
	}
	stemmed, err := snowball.Stem(token, "english", true)
	if err != nil || stemmed == "" {
		return token
	}
	return stemmed
}

// StemAll 对每个词求词干，保持顺序。
func StemAll(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, Stem(t))
	}
	return out
}

// Unique 去重并保持首次出现的顺序。
func Unique(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Overlap 返回 query 中出现在 target 里的词所占比例，上限为 1。
func Overlap(query, target string) float64 {
	qTokens := Tokenize(query)
	if len(qTokens) == 0 {
		return 0
	}
	targetSet := make(map[string]struct{})
	for _, t := range Tokenize(target) {
		targetSet[t] = struct{}{}
	}
	matches := 0
	for _, t := range qTokens {
		if _, ok := targetSet[t]; ok {
			matches++
		}
	}
	ratio := float64(matches) / float64(len(qTokens))
	if ratio > 1 {
		return 1
	}
	return ratio
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// 语言代码与 model.Language 的取值保持一致。
const (
	LangEnglish = "EN"
	LangSinhala = "SI"
	LangTamil   = "TA"
)

var (
	sinhalaBlock = &unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0D80, Hi: 0x0DFF, Stride: 1}}}
	tamilBlock   = &unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0B80, Hi: 0x0BFF, Stride: 1}}}
)

// DetectLanguage 按 Unicode 区块判断语言：先僧伽罗文，再泰米尔文，否则英文。
func DetectLanguage(text string) string {
	if containsAny(text, sinhalaBlock) {
		return LangSinhala
	}
	if containsAny(text, tamilBlock) {
		return LangTamil
	}
	return LangEnglish
}

func containsAny(text string, table *unicode.RangeTable) bool {
	for _, r := range text {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}
