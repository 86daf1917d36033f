package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"matesl-go/internal/config"
	"matesl-go/internal/model"
	"matesl-go/pkg/huggingface"
	"matesl-go/pkg/log"
	"matesl-go/pkg/nlp"
)

// HuggingFaceModelName 是 HuggingFace 适配器写入 ModelUsed 的标识。
const HuggingFaceModelName = "huggingface-multilingual"

type huggingFaceProvider struct {
	client  huggingface.Client
	catalog Catalog
	cfg     config.HuggingFaceConfig
}

// NewHuggingFace 创建 HuggingFace 适配器，APIKey 为空时 Enabled 返回 false。
func NewHuggingFace(client huggingface.Client, catalog Catalog, cfg config.HuggingFaceConfig) Provider {
	return &huggingFaceProvider{client: client, catalog: catalog, cfg: cfg}
}

func (p *huggingFaceProvider) Name() string  { return HuggingFaceModelName }
func (p *huggingFaceProvider) Kind() string  { return KindHuggingFace }
func (p *huggingFaceProvider) Enabled() bool { return p.cfg.APIKey != "" }

func (p *huggingFaceProvider) Generate(ctx context.Context, req model.AIRequest) (result model.ProcessingResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[HuggingFaceProvider] 处理消息时发生 panic: %v", r)
			result = failure(p.Name(), start, fmt.Errorf("huggingface processing panicked: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failure(p.Name(), start, err)
	}

	lang := resolveLanguage(req)
	procedures := p.catalog.RelevantProcedures(ctx, req.Message, contextProcedures)

	intent := p.classifyIntent(ctx, req.Message)
	resp := &model.AIResponse{
		Message:          p.generateAnswer(ctx, req.Message, procedures, lang),
		Confidence:       confidence(req.Message, procedures),
		Category:         categorize(req.Message),
		Intent:           intent,
		Entities:         extractEntities(req.Message),
		SuggestedActions: hfActions(intent, procedures),
		Language:         lang,
		ProcedureID:      procedureID(procedures),
	}
	return success(p.Name(), start, resp)
}

// classifyIntent 调用零样本分类，失败时退回 general_help。
func (p *huggingFaceProvider) classifyIntent(ctx context.Context, message string) string {
	labels, err := p.client.ZeroShotClassification(ctx, message, intentCandidates)
	if err != nil || len(labels) == 0 {
		if err != nil {
			log.Warnf("[HuggingFaceProvider] 意图分类失败，使用 general_help: %v", err)
		}
		return IntentGeneralHelp
	}
	return intentFromLabel(labels[0].Label)
}

func (p *huggingFaceProvider) generateAnswer(ctx context.Context, message string, procedures []model.Procedure, lang model.Language) string {
	if len(procedures) == 0 {
		return localized(hfGenericHelp, lang)
	}
	top := &procedures[0]

	text, err := p.client.TextGeneration(ctx, generationPrompt(message, top, lang), huggingface.GenerationParams{
		MaxNewTokens: p.cfg.MaxNewTokens,
		Temperature:  p.cfg.Temperature,
		DoSample:     true,
	})
	if err != nil {
		log.Warnf("[HuggingFaceProvider] 文本生成失败，使用模板回答: %v", err)
		return templateAnswer(top, lang)
	}
	if strings.TrimSpace(text) == "" {
		return templateAnswer(top, lang)
	}
	return text
}

func generationPrompt(message string, p *model.Procedure, lang model.Language) string {
	steps := make([]string, 0, 3)
	for i, step := range p.Steps {
		if i == 3 {
			break
		}
		steps = append(steps, fmt.Sprintf("%d. %s", i+1, step.Instruction))
	}
	procContext := fmt.Sprintf("Procedure: %s\nSteps: %s", p.Title, strings.Join(steps, "\n"))
	return fmt.Sprintf("Based on this government procedure information:\n%s\n\nUser question: %s\n\nProvide a helpful, concise response in %s language:",
		procContext, message, lang)
}

// confidence 是消息词与首个流程标题和第一步说明的重合率，有流程时不低于 0.4，无流程时为 0.3。
func confidence(message string, procedures []model.Procedure) float64 {
	if len(procedures) == 0 {
		return 0.3
	}
	top := &procedures[0]
	target := top.Title
	if step := firstStep(top); step != nil {
		target += " " + step.Instruction
	}
	score := nlp.Overlap(message, target)
	if score < 0.4 {
		return 0.4
	}
	return score
}

func hfActions(intent string, procedures []model.Procedure) []model.SuggestedAction {
	actions := make([]model.SuggestedAction, 0, 2)
	if len(procedures) > 0 {
		actions = append(actions, model.SuggestedAction{
			Type:  model.ActionProcedure,
			Label: "View complete steps",
			Data:  map[string]string{"procedureId": procedures[0].ID},
		})
	}
	switch intent {
	case IntentOfficeLocation:
		actions = append(actions, model.SuggestedAction{
			Type:  model.ActionOffice,
			Label: "Find offices nearby",
			Data:  map[string]string{"search": "true"},
		})
	case IntentFeeInquiry:
		actions = append(actions, model.SuggestedAction{
			Type:  model.ActionSearch,
			Label: "Check all fees",
			Data:  map[string]string{"query": "fees charges"},
		})
	}
	return actions
}
