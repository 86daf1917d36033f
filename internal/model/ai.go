package model

// AIRequest 是 API 服务发往 AI 服务的请求体。
type AIRequest struct {
	Message   string     `json:"message"`
	Language  Language   `json:"language,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Context   *AIContext `json:"context,omitempty"`
}

// AIContext 携带同一会话最近的几轮对话。
type AIContext struct {
	PreviousMessages []string `json:"previousMessages,omitempty"`
}

// ExtractedEntity 是模型或正则抽取出的实体。
type ExtractedEntity struct {
	Type       string          `json:"type"`
	Value      string          `json:"value"`
	Confidence float64         `json:"confidence"`
	Position   *EntityPosition `json:"position,omitempty"`
}

type EntityPosition struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// 建议动作类型
const (
	ActionProcedure = "procedure"
	ActionOffice    = "office"
	ActionSearch    = "search"
)

// SuggestedAction 是回答之后推荐给用户的下一步操作。
type SuggestedAction struct {
	Type  string            `json:"type"`
	Label string            `json:"label"`
	Data  map[string]string `json:"data,omitempty"`
}

// AIResponse 是各模型适配器统一的归一化输出。
type AIResponse struct {
	Message          string            `json:"message"`
	Confidence       float64           `json:"confidence"`
	Category         Category          `json:"category"`
	Intent           string            `json:"intent"`
	Entities         []ExtractedEntity `json:"entities"`
	SuggestedActions []SuggestedAction `json:"suggestedActions"`
	Language         Language          `json:"language"`
	ProcedureID      string            `json:"procedureId,omitempty"`
}

// ProcessingResult 是 AI 编排器的输出，只在缓存中持久化。
type ProcessingResult struct {
	Success        bool        `json:"success"`
	Response       *AIResponse `json:"response,omitempty"`
	Error          string      `json:"error,omitempty"`
	ProcessingTime int64       `json:"processingTime"`
	ModelUsed      string      `json:"modelUsed"`
}

// 模型状态
const (
	ModelStatusAvailable = "available"
	ModelStatusDisabled  = "disabled"
)

// ModelStatus 描述一个已配置的模型提供方。
type ModelStatus struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Enabled  bool   `json:"enabled"`
	Status   string `json:"status"`
}
