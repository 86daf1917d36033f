// Package provider 实现了 AI 模型提供方适配器，所有适配器输出统一的 model.ProcessingResult。
package provider

import (
	"context"
	"time"

	"matesl-go/internal/model"
	"matesl-go/pkg/nlp"
)

// 提供方类型
const (
	KindOpenAI      = "openai"
	KindHuggingFace = "huggingface"
)

// contextProcedures 是每次回答作为上下文的流程数量。
const contextProcedures = 3

// Provider 是模型提供方的统一契约。Generate 从不返回 Go error，失败体现在 Success=false。
type Provider interface {
	// Name 是写入 ProcessingResult.ModelUsed 的模型标识。
	Name() string
	Kind() string
	// Enabled 表示是否配置了凭据。
	Enabled() bool
	Generate(ctx context.Context, req model.AIRequest) model.ProcessingResult
}

// Catalog 为回答提供相关流程。实现方不应返回错误，检索失败时返回空切片。
type Catalog interface {
	RelevantProcedures(ctx context.Context, message string, limit int) []model.Procedure
}

// Status 返回提供方的模型状态。
func Status(p Provider) model.ModelStatus {
	status := model.ModelStatusDisabled
	if p.Enabled() {
		status = model.ModelStatusAvailable
	}
	return model.ModelStatus{
		Name:     p.Name(),
		Provider: p.Kind(),
		Enabled:  p.Enabled(),
		Status:   status,
	}
}

// resolveLanguage 使用请求中的语言，未提供时按字符区间检测。
func resolveLanguage(req model.AIRequest) model.Language {
	if lang, ok := model.ParseLanguage(string(req.Language)); ok {
		return lang
	}
	return model.Language(nlp.DetectLanguage(req.Message))
}

func extractEntities(text string) []model.ExtractedEntity {
	found := nlp.ExtractEntities(text)
	entities := make([]model.ExtractedEntity, 0, len(found))
	for _, e := range found {
		entities = append(entities, model.ExtractedEntity{
			Type:       e.Type,
			Value:      e.Value,
			Confidence: e.Confidence,
			Position:   &model.EntityPosition{Start: e.Position.Start, End: e.Position.End},
		})
	}
	return entities
}

func failure(name string, start time.Time, err error) model.ProcessingResult {
	return model.ProcessingResult{
		Success:        false,
		Error:          err.Error(),
		ProcessingTime: time.Since(start).Milliseconds(),
		ModelUsed:      name,
	}
}

func success(name string, start time.Time, resp *model.AIResponse) model.ProcessingResult {
	return model.ProcessingResult{
		Success:        true,
		Response:       resp,
		ProcessingTime: time.Since(start).Milliseconds(),
		ModelUsed:      name,
	}
}

func procedureID(procedures []model.Procedure) string {
	if len(procedures) == 0 {
		return ""
	}
	return procedures[0].ID
}

// firstStep 返回第一个步骤，没有步骤时返回 nil。
func firstStep(p *model.Procedure) *model.ProcedureStep {
	if len(p.Steps) == 0 {
		return nil
	}
	return &p.Steps[0]
}
