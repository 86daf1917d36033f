// Package aiclient is the API server's HTTP client for the AI service.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"matesl-go/internal/model"
	"matesl-go/pkg/log"
)

// DefaultTimeout bounds every call to the AI service.
const DefaultTimeout = 30 * time.Second

// ErrUnsuccessful is returned when the AI service answers with success=false.
var ErrUnsuccessful = errors.New("ai service reported failure")

// Client talks to the AI service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client. A non-positive timeout falls back to DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// envelope is the AI service's {code, message, data} response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Process posts the message to /chat/process. Timeouts, non-2xx answers and success=false are all errors.
func (c *Client) Process(ctx context.Context, req model.AIRequest) (*model.ProcessingResult, error) {
	var result model.ProcessingResult
	if err := c.do(ctx, http.MethodPost, "/chat/process", req, &result); err != nil {
		return nil, err
	}
	if !result.Success || result.Response == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, result.Error)
	}
	return &result, nil
}

// ModelStatus returns the configured providers.
func (c *Client) ModelStatus(ctx context.Context) ([]model.ModelStatus, error) {
	var statuses []model.ModelStatus
	if err := c.do(ctx, http.MethodGet, "/models/status", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// ClearCache deletes cached AI responses matching pattern and returns how many were removed.
func (c *Client) ClearCache(ctx context.Context, pattern string) (int64, error) {
	path := "/cache"
	if pattern != "" {
		path += "?pattern=" + url.QueryEscape(pattern)
	}
	var out struct {
		Cleared int64 `json:"cleared"`
	}
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Cleared, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal ai request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create ai request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Errorf("[AIClient] 调用 %s %s 失败: %v", method, path, err)
		return fmt.Errorf("failed to call ai service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read ai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("[AIClient] %s %s 返回非 2xx 状态码: %s", method, path, resp.Status)
		return fmt.Errorf("ai service returned %s", resp.Status)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode ai response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("ai service returned no data: %s", env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode ai response data: %w", err)
	}
	return nil
}
