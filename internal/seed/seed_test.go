package seed

import (
	"context"
	"testing"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProceduresAreActiveAndComplete(t *testing.T) {
	for _, p := range Procedures() {
		assert.Equal(t, model.StatusActive, p.Status, p.Slug)
		assert.True(t, p.Category.Valid(), p.Slug)
		assert.NotEmpty(t, p.Steps, p.Slug)
		assert.NotEmpty(t, p.Fees, p.Slug)
		assert.NotEmpty(t, p.Keywords, p.Slug)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	first, err := Run(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 2, Offices: 5, Procedures: 4}, first)

	second, err := Run(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, second)

	repo := repository.NewProcedureRepository(db)
	passport, err := repo.FindBySlug(ctx, "apply-sri-lankan-passport")
	require.NoError(t, err)
	require.Len(t, passport.Offices, 1)
	assert.True(t, passport.Offices[0].IsMain)
	require.NotNil(t, passport.Offices[0].Office)
	assert.NotEmpty(t, passport.Offices[0].Office.Name)
	assert.Len(t, passport.Fees, 3)

	admin, err := repository.NewUserRepository(db).FindByEmail("admin@gov.lk")
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, admin.Role)
}
