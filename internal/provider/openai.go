package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"matesl-go/internal/config"
	"matesl-go/internal/model"
	"matesl-go/pkg/log"

	"github.com/sashabaranov/go-openai"
)

const extractFunctionName = "extract_intent_and_entities"

var errNoToolCall = errors.New("openai response did not include the extraction tool call")

type openAIProvider struct {
	client  *openai.Client
	catalog Catalog
	cfg     config.OpenAIConfig
}

// NewOpenAI 创建 OpenAI 适配器，APIKey 为空时 Enabled 返回 false。BaseURL 非空时覆盖默认地址。
func NewOpenAI(cfg config.OpenAIConfig, catalog Catalog) Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4
	}
	return &openAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		catalog: catalog,
		cfg:     cfg,
	}
}

func (p *openAIProvider) Name() string  { return p.cfg.Model }
func (p *openAIProvider) Kind() string  { return KindOpenAI }
func (p *openAIProvider) Enabled() bool { return p.cfg.APIKey != "" }

// extraction 是工具调用的参数。
type extraction struct {
	Intent     string                  `json:"intent"`
	Category   model.Category          `json:"category"`
	Entities   []model.ExtractedEntity `json:"entities"`
	Confidence float64                 `json:"confidence"`
}

func (p *openAIProvider) Generate(ctx context.Context, req model.AIRequest) model.ProcessingResult {
	start := time.Now()
	lang := resolveLanguage(req)
	procedures := p.catalog.RelevantProcedures(ctx, req.Message, contextProcedures)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(lang, procedures)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Tools:       []openai.Tool{extractionTool()},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: extractFunctionName},
		},
	})
	if err != nil {
		log.Errorf("[OpenAIProvider] 调用 Chat Completion 失败: %v", err)
		return failure(p.Name(), start, err)
	}

	data, err := parseExtraction(resp)
	if err != nil {
		log.Errorf("[OpenAIProvider] 解析工具调用失败: %v", err)
		return failure(p.Name(), start, err)
	}

	answer := localized(openAIGenericHelp, lang)
	if len(procedures) > 0 {
		answer = stepsAnswer(&procedures[0], lang)
	}
	return success(p.Name(), start, &model.AIResponse{
		Message:          answer,
		Confidence:       data.Confidence,
		Category:         data.Category,
		Intent:           data.Intent,
		Entities:         data.Entities,
		SuggestedActions: openAIActions(data, procedures),
		Language:         lang,
		ProcedureID:      procedureID(procedures),
	})
}

// parseExtraction 读取强制工具调用的参数并补齐默认值。
func parseExtraction(resp openai.ChatCompletionResponse) (extraction, error) {
	if len(resp.Choices) == 0 {
		return extraction{}, errNoToolCall
	}
	msg := resp.Choices[0].Message

	args := "{}"
	for _, call := range msg.ToolCalls {
		if call.Function.Name == extractFunctionName {
			args = call.Function.Arguments
			break
		}
	}
	if args == "{}" && msg.FunctionCall != nil && msg.FunctionCall.Name == extractFunctionName {
		args = msg.FunctionCall.Arguments
	}

	var data extraction
	if err := json.Unmarshal([]byte(args), &data); err != nil {
		return extraction{}, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if data.Confidence == 0 {
		data.Confidence = 0.5
	}
	if data.Confidence > 1 {
		data.Confidence = 1
	}
	if !data.Category.Valid() {
		data.Category = model.CategoryOther
	}
	if data.Intent == "" {
		data.Intent = IntentUnclear
	}
	if data.Entities == nil {
		data.Entities = []model.ExtractedEntity{}
	}
	return data, nil
}

func extractionTool() openai.Tool {
	categories := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		categories = append(categories, string(c))
	}
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        extractFunctionName,
			Description: "Extract intent and entities from user message",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"intent":   map[string]interface{}{"type": "string", "enum": intentEnum},
					"category": map[string]interface{}{"type": "string", "enum": categories},
					"entities": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"type":       map[string]interface{}{"type": "string"},
								"value":      map[string]interface{}{"type": "string"},
								"confidence": map[string]interface{}{"type": "number"},
							},
						},
					},
					"confidence": map[string]interface{}{"type": "number"},
				},
				"required": []string{"intent", "category", "confidence"},
			},
		},
	}
}

func systemPrompt(lang model.Language, procedures []model.Procedure) string {
	lines := make([]string, 0, len(procedures))
	for i := range procedures {
		instruction := "No steps available"
		if step := firstStep(&procedures[i]); step != nil {
			instruction = step.Instruction
		}
		lines = append(lines, fmt.Sprintf("%s: %s", procedures[i].Title, instruction))
	}

	return fmt.Sprintf(`You are an AI assistant for Sri Lankan government services. Help users with:
- Government procedures and requirements
- Document applications (NIC, Passport, Birth Certificate, etc.)
- Office locations and contact information
- Fees and processing times

Language: %s
Available procedures context:
%s

Guidelines:
- Be helpful, accurate, and concise
- Always provide step-by-step guidance
- Include relevant fees and requirements
- Suggest nearest offices when applicable
- If unsure, ask for clarification
- Respond in the user's preferred language`, lang, strings.Join(lines, "\n"))
}

func userPrompt(req model.AIRequest) string {
	prompt := "User question: " + req.Message
	if req.Context != nil && len(req.Context.PreviousMessages) > 0 {
		prompt += "\n\nPrevious conversation context:\n" + strings.Join(req.Context.PreviousMessages, "\n")
	}
	return prompt
}

func openAIActions(data extraction, procedures []model.Procedure) []model.SuggestedAction {
	actions := make([]model.SuggestedAction, 0, 2)
	if len(procedures) > 0 {
		actions = append(actions, model.SuggestedAction{
			Type:  model.ActionProcedure,
			Label: "View complete procedure",
			Data:  map[string]string{"procedureId": procedures[0].ID},
		})
	}
	if data.Intent == IntentOfficeLocation {
		actions = append(actions, model.SuggestedAction{
			Type:  model.ActionOffice,
			Label: "Find nearest office",
			Data:  map[string]string{"category": string(data.Category)},
		})
	}
	return actions
}
