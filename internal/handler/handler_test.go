package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"matesl-go/internal/model"
	"matesl-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

// stubChat 只实现被测接口用到的方法。
type stubChat struct {
	service.ChatService
	inputs []service.SendMessageInput
	err    error
}

func (s *stubChat) SendMessage(ctx context.Context, in service.SendMessageInput) (*service.SendMessageResult, error) {
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return nil, s.err
	}
	return &service.SendMessageResult{SessionID: "s-1", Response: "ok", Language: in.Language}, nil
}

func TestChatSendMessage(t *testing.T) {
	chat := &stubChat{}
	r := gin.New()
	r.POST("/chat/message", NewChatHandler(chat, nil, nil).SendMessage)

	w, _ := do(t, r, http.MethodPost, "/chat/message", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, chat.inputs)

	w, _ = do(t, r, http.MethodPost, "/chat/message", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/chat/message", `{"message":"hi","language":"fr"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(t, r, http.MethodPost, "/chat/message", `{"message":"passport","language":"SI"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res service.SendMessageResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "s-1", res.SessionID)
	require.Len(t, chat.inputs, 1)
	assert.Equal(t, model.LanguageSI, chat.inputs[0].Language)
	assert.Nil(t, chat.inputs[0].UserID)
}

func TestChatErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{service.ErrEmptyMessage, http.StatusBadRequest},
		{service.ErrSessionNotFound, http.StatusNotFound},
		{service.ErrExportFormat, http.StatusBadRequest},
		{service.ErrArchiveDisabled, http.StatusServiceUnavailable},
		{service.ErrProcessingFailed, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		chat := &stubChat{err: tc.err}
		r := gin.New()
		r.POST("/chat/message", NewChatHandler(chat, nil, nil).SendMessage)

		w, env := do(t, r, http.MethodPost, "/chat/message", `{"message":"passport"}`)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		assert.Equal(t, tc.code, env.Code)
	}
}

type stubAI struct {
	result  model.ProcessingResult
	pattern string
}

func (s *stubAI) Process(ctx context.Context, req model.AIRequest) model.ProcessingResult {
	return s.result
}

func (s *stubAI) ModelStatus() []model.ModelStatus {
	return []model.ModelStatus{{Name: "gpt-3.5-turbo", Provider: "openai", Enabled: true, Status: model.ModelStatusAvailable}}
}

func (s *stubAI) ClearCache(ctx context.Context, pattern string) (int64, error) {
	s.pattern = pattern
	return 3, nil
}

func TestAIHandlerProcess(t *testing.T) {
	ai := &stubAI{result: model.ProcessingResult{Success: false, Error: service.ErrNoModelsAvailable, ModelUsed: "none"}}
	h := NewAIHandler(ai)
	r := gin.New()
	r.POST("/chat/process", h.Process)
	r.DELETE("/cache", h.ClearCache)

	w, _ := do(t, r, http.MethodPost, "/chat/process", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(t, r, http.MethodPost, "/chat/process", `{"message":"hello"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ErrNoModelsAvailable, env.Message)
	var res model.ProcessingResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Success)

	w, env = do(t, r, http.MethodDelete, "/cache?pattern=abc*", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cleared":3}`, string(env.Data))
	assert.Equal(t, "abc*", ai.pattern)
}

type stubSearch struct {
	queries []service.SearchQuery
	result  service.SearchResult
}

func (s *stubSearch) Search(ctx context.Context, q service.SearchQuery) service.SearchResult {
	s.queries = append(s.queries, q)
	return s.result
}

func (s *stubSearch) RelevantProcedures(ctx context.Context, message string, limit int) []model.Procedure {
	return nil
}

func TestProcedureSearch(t *testing.T) {
	search := &stubSearch{result: service.SearchResult{Procedures: []model.Procedure{}, Suggestions: []string{}, Degraded: true}}
	r := gin.New()
	r.GET("/procedures/search", NewProcedureHandler(search, nil).Search)

	w, _ := do(t, r, http.MethodGet, "/procedures/search?q=x&category=nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, r, http.MethodGet, "/procedures/search?q=x&language=de", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, search.queries)

	w, env := do(t, r, http.MethodGet, "/procedures/search?q=passport&category=passports&limit=500&offset=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, search.queries, 1)
	assert.Equal(t, model.CategoryPassports, search.queries[0].Category)

	var data struct {
		Degraded   bool       `json:"degraded"`
		Pagination Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Degraded)
	assert.Equal(t, service.MaxSearchLimit, data.Pagination.Limit)
	assert.Equal(t, 20, data.Pagination.Offset)
}

func TestNewPagination(t *testing.T) {
	p := newPagination(10, 20, 45)
	assert.Equal(t, Pagination{Page: 3, Limit: 10, Offset: 20, Total: 45, TotalPages: 5}, p)
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/ok", Health("api", map[string]HealthCheck{"db": func(context.Context) error { return nil }}))
	r.GET("/bad", Health("api", map[string]HealthCheck{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}))

	w, env := do(t, r, http.MethodGet, "/ok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", env.Message)

	w, env = do(t, r, http.MethodGet, "/bad", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", env.Message)
	assert.Contains(t, string(env.Data), `"redis":"connection refused"`)
}
