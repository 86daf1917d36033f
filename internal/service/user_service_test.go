package service

import (
	"context"
	"testing"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/token"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture(t *testing.T) (UserService, repository.UserRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := repository.NewUserRepository(newTestDB(t))
	return NewUserService(repo, token.NewJWTManager("test-secret", 1, 7), rdb), repo
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.Register("not-an-email", "A", "secret1", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register("a@gov.lk", "A", "123", "")
	assert.ErrorIs(t, err, ErrWeakPassword)

	user, err := svc.Register(" Citizen@Example.LK ", "", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, "citizen@example.lk", user.Email)
	assert.Equal(t, "citizen", user.Name)
	assert.Equal(t, model.RoleCitizen, user.Role)
	assert.Equal(t, model.LanguageEN, user.PreferredLanguage)
	assert.NotEqual(t, "secret1", user.Password)

	_, err = svc.Register("citizen@example.lk", "Again", "secret1", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginLogoutAndRefresh(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserFixture(t)
	_, err := svc.Register("citizen@example.lk", "Citizen", "secret1", model.LanguageSI)
	require.NoError(t, err)

	_, _, err = svc.Login("citizen@example.lk", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login("nobody@example.lk", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, pair, err := svc.Login("citizen@example.lk", "secret1")
	require.NoError(t, err)
	assert.Equal(t, model.LanguageSI, user.PreferredLanguage)

	revoked, err := svc.IsTokenRevoked(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Logout(ctx, pair.AccessToken))
	revoked, err = svc.IsTokenRevoked(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	refreshed, err := svc.RefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.RefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	svc, repo := newUserFixture(t)
	user, err := svc.Register("old@example.lk", "Old", "secret1", "")
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, repo.Update(user))

	_, _, err = svc.Login("old@example.lk", "secret1")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestUpdateProfileAndChangePassword(t *testing.T) {
	svc, _ := newUserFixture(t)
	user, err := svc.Register("citizen@example.lk", "Citizen", "secret1", "")
	require.NoError(t, err)

	name := "Nimal"
	ta := model.LanguageTA
	updated, err := svc.UpdateProfile(user.ID, ProfileUpdate{Name: &name, PreferredLanguage: &ta})
	require.NoError(t, err)
	assert.Equal(t, "Nimal", updated.Name)
	assert.Equal(t, model.LanguageTA, updated.PreferredLanguage)

	fr := model.Language("fr")
	_, err = svc.UpdateProfile(user.ID, ProfileUpdate{PreferredLanguage: &fr})
	assert.Error(t, err)

	assert.ErrorIs(t, svc.ChangePassword(user.ID, "wrong", "newsecret"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(user.ID, "secret1", "123"), ErrWeakPassword)
	require.NoError(t, svc.ChangePassword(user.ID, "secret1", "newsecret"))

	_, _, err = svc.Login("citizen@example.lk", "newsecret")
	assert.NoError(t, err)

	_, err = svc.GetProfile(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
