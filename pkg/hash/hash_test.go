package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hashed)
	assert.True(t, CheckPasswordHash("admin123", hashed))
	assert.False(t, CheckPasswordHash("wrong", hashed))
}
