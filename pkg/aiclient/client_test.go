package aiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"matesl-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeHandler(t *testing.T, status int, data interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{"code": status, "message": "success", "data": data}))
	}
}

func TestProcess(t *testing.T) {
	var got model.AIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/process", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		envelopeHandler(t, http.StatusOK, model.ProcessingResult{
			Success:   true,
			ModelUsed: "gpt-3.5-turbo",
			Response:  &model.AIResponse{Message: "hello"},
		})(w, r)
	}))
	defer srv.Close()

	res, err := New(srv.URL+"/", time.Second).Process(context.Background(), model.AIRequest{Message: "hi", Language: model.LanguageEN})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Response.Message)
	assert.Equal(t, "hi", got.Message)
}

func TestProcessUnsuccessful(t *testing.T) {
	srv := httptest.NewServer(envelopeHandler(t, http.StatusOK, model.ProcessingResult{Success: false, Error: "no models available"}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Process(context.Background(), model.AIRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrUnsuccessful)
	assert.Contains(t, err.Error(), "no models available")
}

func TestNon2xxIsAnError(t *testing.T) {
	srv := httptest.NewServer(envelopeHandler(t, http.StatusBadGateway, nil))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Process(context.Background(), model.AIRequest{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 50*time.Millisecond).ModelStatus(context.Background())
	assert.Error(t, err)
}

func TestClearCacheAndModelStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cache", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "ai:abc*", r.URL.Query().Get("pattern"))
		envelopeHandler(t, http.StatusOK, map[string]int{"cleared": 4})(w, r)
	})
	mux.HandleFunc("/models/status", envelopeHandler(t, http.StatusOK, []model.ModelStatus{{Name: "gpt-3.5-turbo", Provider: "openai"}}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, 0)
	n, err := c.ClearCache(context.Background(), "ai:abc*")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	statuses, err := c.ModelStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "openai", statuses[0].Provider)
}
