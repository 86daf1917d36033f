// Package huggingface provides a client for the HuggingFace Inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"matesl-go/internal/config"
	"matesl-go/pkg/log"
)

// ErrEmptyResponse is returned when the API answers 200 with no usable payload.
var ErrEmptyResponse = errors.New("huggingface returned an empty response")

// Client defines the inference calls the assistant uses.
type Client interface {
	// ZeroShotClassification returns candidate labels ordered by descending score.
	ZeroShotClassification(ctx context.Context, text string, candidates []string) ([]Label, error)
	// TextGeneration returns the generated text for prompt.
	TextGeneration(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Label is one scored zero-shot label.
type Label struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	DoSample     bool    `json:"do_sample"`
}

type inferenceClient struct {
	cfg    config.HuggingFaceConfig
	client *http.Client
}

// NewClient creates a new HuggingFace client. A zero timeout means no client-side deadline.
func NewClient(cfg config.HuggingFaceConfig) Client {
	return &inferenceClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type zeroShotRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		CandidateLabels []string `json:"candidate_labels"`
	} `json:"parameters"`
}

// zeroShotResponse is the classic pipeline shape: parallel label and score arrays.
type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

type generationRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters GenerationParams `json:"parameters"`
}

type generationResponse struct {
	GeneratedText string `json:"generated_text"`
}

func (c *inferenceClient) ZeroShotClassification(ctx context.Context, text string, candidates []string) ([]Label, error) {
	var reqBody zeroShotRequest
	reqBody.Inputs = text
	reqBody.Parameters.CandidateLabels = candidates

	raw, err := c.post(ctx, c.cfg.ClassificationModel, reqBody)
	if err != nil {
		return nil, err
	}

	// 新版路由返回 [{label, score}]，旧版返回 {labels, scores}
	var labels []Label
	if err := json.Unmarshal(raw, &labels); err == nil {
		if len(labels) == 0 {
			return nil, ErrEmptyResponse
		}
		return labels, nil
	}
	var resp zeroShotResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode zero-shot response: %w", err)
	}
	if len(resp.Labels) == 0 || len(resp.Labels) != len(resp.Scores) {
		return nil, ErrEmptyResponse
	}
	labels = make([]Label, len(resp.Labels))
	for i := range resp.Labels {
		labels[i] = Label{Label: resp.Labels[i], Score: resp.Scores[i]}
	}
	return labels, nil
}

func (c *inferenceClient) TextGeneration(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	raw, err := c.post(ctx, c.cfg.GenerationModel, generationRequest{Inputs: prompt, Parameters: params})
	if err != nil {
		return "", err
	}

	var list []generationResponse
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", ErrEmptyResponse
		}
		return list[0].GeneratedText, nil
	}
	var single generationResponse
	if err := json.Unmarshal(raw, &single); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	return single.GeneratedText, nil
}

func (c *inferenceClient) post(ctx context.Context, modelID string, body interface{}) ([]byte, error) {
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal huggingface request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + modelID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create huggingface request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[HuggingFaceClient] 调用模型 %s 失败, error: %v", modelID, err)
		return nil, fmt.Errorf("failed to call huggingface api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read huggingface response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Errorf("[HuggingFaceClient] 模型 %s 返回非 200 状态码: %s", modelID, resp.Status)
		return nil, fmt.Errorf("huggingface api returned non-200 status: %s, body: %s", resp.Status, string(raw))
	}
	return raw, nil
}
