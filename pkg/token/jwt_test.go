package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManagerRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)

	access, err := m.GenerateToken(42, "citizen@example.lk", "CITIZEN")
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "citizen@example.lk", claims.Email)
	assert.Equal(t, "CITIZEN", claims.Role)

	_, err = m.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestJWTManagerRejectsForeignSecret(t *testing.T) {
	issued, err := NewJWTManager("one", 1, 1).GenerateRefreshToken(1, "a@b.lk", "ADMIN")
	require.NoError(t, err)

	_, err = NewJWTManager("two", 1, 1).VerifyRefreshToken(issued)
	assert.Error(t, err)
}

func TestJWTManagerRejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", 0, 0)
	issued, err := m.GenerateToken(1, "a@b.lk", "CITIZEN")
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(issued)
	assert.Error(t, err)
}
