package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"matesl-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.HuggingFaceConfig{
		APIKey:              "hf_test",
		BaseURL:             srv.URL + "/models/",
		ClassificationModel: "facebook/bart-large-mnli",
		GenerationModel:     "microsoft/DialoGPT-medium",
		Timeout:             time.Second,
	})
}

func TestZeroShotClassificationShapes(t *testing.T) {
	t.Run("label list", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models/facebook/bart-large-mnli", r.URL.Path)
			assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
			var body zeroShotRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"fee inquiry", "greeting"}, body.Parameters.CandidateLabels)
			_, _ = w.Write([]byte(`[{"label":"fee inquiry","score":0.9},{"label":"greeting","score":0.1}]`))
		})
		labels, err := c.ZeroShotClassification(context.Background(), "how much", []string{"fee inquiry", "greeting"})
		require.NoError(t, err)
		assert.Equal(t, "fee inquiry", labels[0].Label)
	})

	t.Run("parallel arrays", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"sequence":"hi","labels":["greeting","fee inquiry"],"scores":[0.8,0.2]}`))
		})
		labels, err := c.ZeroShotClassification(context.Background(), "hi", []string{"fee inquiry", "greeting"})
		require.NoError(t, err)
		assert.Equal(t, []Label{{Label: "greeting", Score: 0.8}, {Label: "fee inquiry", Score: 0.2}}, labels)
	})

	t.Run("empty", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		})
		_, err := c.ZeroShotClassification(context.Background(), "hi", nil)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestTextGeneration(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body generationRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 150, body.Parameters.MaxNewTokens)
		_, _ = w.Write([]byte(`[{"generated_text":"Visit the DRP office."}]`))
	})
	text, err := c.TextGeneration(context.Background(), "prompt", GenerationParams{MaxNewTokens: 150, DoSample: true})
	require.NoError(t, err)
	assert.Equal(t, "Visit the DRP office.", text)
}

func TestNon200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
	})
	_, err := c.TextGeneration(context.Background(), "prompt", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
