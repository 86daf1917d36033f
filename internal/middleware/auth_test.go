package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"matesl-go/internal/model"
	"matesl-go/internal/service"
	"matesl-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUsers 只实现认证中间件用到的方法。
type stubUsers struct {
	service.UserService
	users   map[uint]*model.User
	revoked map[string]bool
}

func (s *stubUsers) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	return s.revoked[tokenString], nil
}

func (s *stubUsers) GetProfile(userID uint) (*model.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return u, nil
}

func newAuthFixture(t *testing.T) (*gin.Engine, *token.JWTManager, *stubUsers) {
	t.Helper()
	jwtManager := token.NewJWTManager("secret", 1, 1)
	users := &stubUsers{
		users: map[uint]*model.User{
			1: {ID: 1, Role: model.RoleCitizen, IsActive: true},
			2: {ID: 2, Role: model.RoleContentManager, IsActive: true},
			3: {ID: 3, Role: model.RoleSuperAdmin, IsActive: true},
			4: {ID: 4, Role: model.RoleAdmin, IsActive: false},
		},
		revoked: map[string]bool{},
	}

	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	authed := r.Group("/", AuthMiddleware(jwtManager, users))
	authed.GET("/me", ok)
	authed.GET("/content", ContentManagerMiddleware(), ok)
	authed.GET("/admin", AdminAuthMiddleware(), ok)
	r.GET("/optional", OptionalAuth(jwtManager, users), func(c *gin.Context) {
		if id := CurrentUserID(c); id != nil {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	return r, jwtManager, users
}

func get(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func issue(t *testing.T, m *token.JWTManager, id uint) string {
	t.Helper()
	s, err := m.GenerateToken(id, "u@gov.lk", "")
	require.NoError(t, err)
	return s
}

func TestAuthMiddleware(t *testing.T) {
	r, jwtManager, users := newAuthFixture(t)
	citizen := issue(t, jwtManager, 1)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "garbage").Code)
	assert.Equal(t, http.StatusOK, get(r, "/me", citizen).Code)

	refresh, err := jwtManager.GenerateRefreshToken(1, "u@gov.lk", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", refresh).Code)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", issue(t, jwtManager, 4)).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", issue(t, jwtManager, 99)).Code)

	users.revoked[citizen] = true
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", citizen).Code)
}

func TestRoleMiddleware(t *testing.T) {
	r, jwtManager, _ := newAuthFixture(t)
	citizen, manager, superAdmin := issue(t, jwtManager, 1), issue(t, jwtManager, 2), issue(t, jwtManager, 3)

	assert.Equal(t, http.StatusForbidden, get(r, "/content", citizen).Code)
	assert.Equal(t, http.StatusOK, get(r, "/content", manager).Code)
	assert.Equal(t, http.StatusOK, get(r, "/content", superAdmin).Code)

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", manager).Code)
	assert.Equal(t, http.StatusOK, get(r, "/admin", superAdmin).Code)
}

func TestOptionalAuth(t *testing.T) {
	r, jwtManager, _ := newAuthFixture(t)

	assert.Equal(t, "anonymous", get(r, "/optional", "").Body.String())
	assert.Equal(t, "anonymous", get(r, "/optional", "garbage").Body.String())
	assert.Equal(t, "user", get(r, "/optional", issue(t, jwtManager, 1)).Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://matesl.lk"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://matesl.lk")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://matesl.lk", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
