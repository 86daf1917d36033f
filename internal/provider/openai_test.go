package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"matesl-go/internal/config"
	"matesl-go/internal/model"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolCallResponse(args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:       "call-1",
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: extractFunctionName, Arguments: args},
				}},
			},
			FinishReason: openai.FinishReasonToolCalls,
		}},
	}
}

func newOpenAITestServer(t *testing.T, status int, body interface{}, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerate(t *testing.T) {
	var seen openai.ChatCompletionRequest
	srv := newOpenAITestServer(t, http.StatusOK,
		toolCallResponse(`{"intent":"office_location","category":"PASSPORTS","confidence":0.92,"entities":[{"type":"document","value":"passport","confidence":0.9}]}`),
		&seen)
	catalog := &fakeCatalog{procedures: []model.Procedure{passportProcedure()}}
	p := NewOpenAI(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-3.5-turbo", MaxTokens: 500}, catalog)

	res := p.Generate(context.Background(), model.AIRequest{
		Message:  "where do I apply for a passport",
		Language: model.LanguageEN,
		Context:  &model.AIContext{PreviousMessages: []string{"User: hi", "Assistant: hello"}},
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "gpt-3.5-turbo", res.ModelUsed)
	assert.Equal(t, IntentOfficeLocation, res.Response.Intent)
	assert.Equal(t, model.CategoryPassports, res.Response.Category)
	assert.Equal(t, 0.92, res.Response.Confidence)
	assert.Len(t, res.Response.Entities, 1)
	assert.Contains(t, res.Response.Message, "1. Fill the application form")
	require.Len(t, res.Response.SuggestedActions, 2)
	assert.Equal(t, model.ActionOffice, res.Response.SuggestedActions[1].Type)

	require.Len(t, seen.Messages, 2)
	assert.Contains(t, seen.Messages[0].Content, "Apply for Passport: Fill the application form")
	assert.Contains(t, seen.Messages[1].Content, "Previous conversation context:\nUser: hi")
	require.Len(t, seen.Tools, 1)
	assert.Equal(t, extractFunctionName, seen.Tools[0].Function.Name)
}

func TestOpenAIDefaultsMissingFields(t *testing.T) {
	srv := newOpenAITestServer(t, http.StatusOK, toolCallResponse(`{"category":"NOT_A_CATEGORY"}`), nil)
	p := NewOpenAI(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-3.5-turbo"}, &fakeCatalog{})

	res := p.Generate(context.Background(), model.AIRequest{Message: "hello", Language: model.LanguageSI})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, model.CategoryOther, res.Response.Category)
	assert.Equal(t, IntentUnclear, res.Response.Intent)
	assert.Equal(t, 0.5, res.Response.Confidence)
	assert.Equal(t, openAIGenericHelp[model.LanguageSI], res.Response.Message)
	assert.NotNil(t, res.Response.Entities)
}

func TestOpenAIReportsUpstreamFailure(t *testing.T) {
	srv := newOpenAITestServer(t, http.StatusTooManyRequests,
		map[string]interface{}{"error": map[string]interface{}{"message": "rate limited", "type": "rate_limit"}}, nil)
	p := NewOpenAI(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-3.5-turbo"}, &fakeCatalog{})

	res := p.Generate(context.Background(), model.AIRequest{Message: "hello"})
	assert.False(t, res.Success)
	assert.Nil(t, res.Response)
	assert.NotEmpty(t, res.Error)
}

func TestParseExtractionWithoutToolCall(t *testing.T) {
	_, err := parseExtraction(openai.ChatCompletionResponse{})
	assert.ErrorIs(t, err, errNoToolCall)

	data, err := parseExtraction(openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{}}})
	require.NoError(t, err)
	assert.Equal(t, IntentUnclear, data.Intent)

	data, err = parseExtraction(toolCallResponse(`{"confidence":3}`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, data.Confidence)
}
