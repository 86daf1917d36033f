package repository_test

import (
	"context"
	"testing"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/database"
	"matesl-go/pkg/nlp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createProcedure(t *testing.T, repo repository.ProcedureRepository, p model.Procedure) *model.Procedure {
	t.Helper()
	if p.Status == "" {
		p.Status = model.StatusActive
	}
	if p.Slug == "" {
		p.Slug = p.Title
	}
	require.NoError(t, repo.Create(context.Background(), &p))
	return &p
}

func filterFor(query string) repository.ProcedureFilter {
	tokens := nlp.Tokenize(query)
	return repository.ProcedureFilter{
		Query:  query,
		Tokens: tokens,
		Stems:  nlp.StemAll(tokens),
		Limit:  20,
	}
}

func titles(ps []model.Procedure) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Title)
	}
	return out
}

func TestProcedureSearchPredicate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProcedureRepository(newTestDB(t))

	createProcedure(t, repo, model.Procedure{
		Title:      "Apply for Passport",
		Category:   model.CategoryPassports,
		SearchTags: []string{"travel documents"},
	})
	createProcedure(t, repo, model.Procedure{
		Title:    "National Identity Card",
		Category: model.CategoryIdentityDocuments,
		Keywords: []string{"nic", "identity"},
	})
	createProcedure(t, repo, model.Procedure{
		Title:      "Register a Business",
		Category:   model.CategoryBusiness,
		SearchTags: []string{"companies"},
	})
	createProcedure(t, repo, model.Procedure{
		Title:    "Passport Renewal Draft",
		Category: model.CategoryPassports,
		Status:   model.StatusDraft,
	})

	t.Run("title substring, active only", func(t *testing.T) {
		got, total, err := repo.Search(ctx, filterFor("passport"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, []string{"Apply for Passport"}, titles(got))
	})

	t.Run("keyword matches whole token", func(t *testing.T) {
		got, _, err := repo.Search(ctx, filterFor("nic"))
		require.NoError(t, err)
		assert.Equal(t, []string{"National Identity Card"}, titles(got))
		assert.ElementsMatch(t, []string{"nic", "identity"}, got[0].Keywords)
	})

	t.Run("tag matches by stem", func(t *testing.T) {
		got, _, err := repo.Search(ctx, filterFor("company"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Register a Business"}, titles(got))
	})

	t.Run("category narrows results", func(t *testing.T) {
		f := filterFor("passport")
		f.Category = model.CategoryBusiness
		got, total, err := repo.Search(ctx, f)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, got)
	})

	t.Run("like wildcards are literal", func(t *testing.T) {
		got, _, err := repo.Search(ctx, filterFor("%"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestProcedureSearchPagination(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProcedureRepository(newTestDB(t))
	for _, title := range []string{"Vehicle Licence A", "Vehicle Licence B", "Vehicle Licence C"} {
		createProcedure(t, repo, model.Procedure{Title: title, Category: model.CategoryVehicle})
	}

	f := filterFor("vehicle")
	f.Limit = 2
	got, total, err := repo.Search(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, got, 2)

	f.Offset = 2
	got, total, err = repo.Search(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, got, 1)
}

func TestProcedureSuggest(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProcedureRepository(newTestDB(t))
	createProcedure(t, repo, model.Procedure{
		Title:      "Apply for Passport",
		Category:   model.CategoryPassports,
		Keywords:   []string{"passport", "passport renewal"},
		SearchTags: []string{"passport fees"},
	})
	createProcedure(t, repo, model.Procedure{
		Title:    "Hidden",
		Category: model.CategoryPassports,
		Status:   model.StatusDraft,
		Keywords: []string{"passport draft"},
	})

	got, err := repo.Suggest(ctx, "Passport", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"passport fees", "passport renewal"}, got)

	got, err = repo.Suggest(ctx, "  ", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProcedureUpdateBumpsVersionAndReplacesTerms(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProcedureRepository(newTestDB(t))
	p := createProcedure(t, repo, model.Procedure{
		Title:    "Birth Certificate",
		Category: model.CategoryBirthCertificates,
		Keywords: []string{"birth"},
	})

	title := "Birth Certificate Copy"
	err := repo.Update(ctx, p.ID, repository.ProcedureChanges{
		Title:        &title,
		Keywords:     []string{"copy"},
		ReplaceTerms: true,
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, []string{"copy"}, got.Keywords)
	assert.Equal(t, p.Slug, got.Slug)

	err = repo.Update(ctx, "missing", repository.ProcedureChanges{Title: &title})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProcedureFindByIDsKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProcedureRepository(newTestDB(t))
	a := createProcedure(t, repo, model.Procedure{Title: "A", Category: model.CategoryOther})
	b := createProcedure(t, repo, model.Procedure{Title: "B", Category: model.CategoryOther})

	got, err := repo.FindByIDs(ctx, []string{b.ID, "missing", a.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, titles(got))
}

func TestProcedureSlugIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProcedureRepository(newTestDB(t))
	createProcedure(t, repo, model.Procedure{Title: "A", Slug: "same", Category: model.CategoryOther})

	err := repo.Create(ctx, &model.Procedure{Title: "B", Slug: "same", Category: model.CategoryOther, Status: model.StatusActive})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestProcedureCounts(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProcedureRepository(newTestDB(t))
	createProcedure(t, repo, model.Procedure{Title: "A", Category: model.CategoryHealth})
	createProcedure(t, repo, model.Procedure{Title: "B", Category: model.CategoryHealth, Status: model.StatusDraft})

	total, active, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), active)

	byCategory, err := repo.CountByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []repository.CategoryCount{{Category: model.CategoryHealth, Count: 1}}, byCategory)
}
