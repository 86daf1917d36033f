package service

import (
	"context"
	"testing"
	"time"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchHistoryService(t *testing.T) {
	ctx := context.Background()
	svc := NewSearchHistoryService(repository.NewSearchHistoryRepository(newTestDB(t)))
	now := time.Now()

	for i, q := range []string{"passport", "nic"} {
		require.NoError(t, svc.PublishSearchEvent(ctx, tasks.SearchEvent{
			EventID:      q,
			UserID:       uintPtr(8),
			Query:        q,
			Language:     "EN",
			ResultsCount: i,
			SearchedAt:   now.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, svc.HandleSearchEvent(ctx, tasks.SearchEvent{Query: "anonymous", Language: "EN", SearchedAt: now}))

	history, total, err := svc.History(ctx, 8, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, history, 2)
	assert.Equal(t, "nic", history[0].Query)
	assert.Equal(t, model.LanguageEN, history[0].Language)
}
