package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"matesl-go/internal/config"
	"matesl-go/internal/model"
	"matesl-go/internal/provider"
	"matesl-go/internal/repository"
	"matesl-go/internal/seed"
	"matesl-go/pkg/huggingface"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHF struct {
	generations int
}

func (c *stubHF) ZeroShotClassification(ctx context.Context, text string, candidates []string) ([]huggingface.Label, error) {
	return []huggingface.Label{{Label: "procedure inquiry", Score: 0.82}, {Label: "fee inquiry", Score: 0.1}}, nil
}

func (c *stubHF) TextGeneration(ctx context.Context, prompt string, params huggingface.GenerationParams) (string, error) {
	c.generations++
	return "", nil
}

func TestNICQuestionOverSeededCatalog(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	_, err := seed.Run(ctx, db)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	search := NewSearchService(repository.NewProcedureRepository(db), nil, nil)
	const question = "how can I apply for a new NIC"

	res := search.Search(ctx, SearchQuery{Query: question})
	require.False(t, res.Degraded)
	require.Len(t, res.Procedures, 1)
	assert.Equal(t, "Apply for New National Identity Card", res.Procedures[0].Title)
	assert.Equal(t, model.CategoryIdentityDocuments, res.Procedures[0].Category)

	hf := &stubHF{}
	openAI := provider.NewOpenAI(config.OpenAIConfig{Model: "gpt-3.5-turbo"}, search)
	hfProvider := provider.NewHuggingFace(hf, search, config.HuggingFaceConfig{APIKey: "hf_test", MaxNewTokens: 200, Temperature: 0.7})
	ai := NewAIService(openAI, hfProvider, repository.NewAICacheRepository(rdb), time.Hour)

	first := ai.Process(ctx, model.AIRequest{Message: question})
	require.True(t, first.Success, first.Error)
	assert.Equal(t, provider.HuggingFaceModelName, first.ModelUsed)
	require.NotNil(t, first.Response)
	assert.Equal(t, model.LanguageEN, first.Response.Language)
	assert.Equal(t, model.CategoryIdentityDocuments, first.Response.Category)
	assert.GreaterOrEqual(t, first.Response.Confidence, 0.4)
	assert.Equal(t, provider.IntentProcedureInquiry, first.Response.Intent)
	assert.Equal(t, res.Procedures[0].ID, first.Response.ProcedureID)
	assert.True(t, strings.HasPrefix(first.Response.Message, "For Apply for New National Identity Card, you need to: "))

	second := ai.Process(ctx, model.AIRequest{Message: question})
	assert.Equal(t, provider.HuggingFaceModelName+" (cached)", second.ModelUsed)
	second.ModelUsed = strings.TrimSuffix(second.ModelUsed, " (cached)")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, hf.generations)
}
