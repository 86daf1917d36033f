package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatSessionOwnedBy(t *testing.T) {
	one, two := uint(1), uint(2)

	assert.True(t, (&ChatSession{UserID: &one}).OwnedBy(&one))
	assert.False(t, (&ChatSession{UserID: &one}).OwnedBy(&two))
	assert.False(t, (&ChatSession{UserID: &one}).OwnedBy(nil))
	assert.False(t, (&ChatSession{}).OwnedBy(&one))
	assert.False(t, (&ChatSession{}).OwnedBy(nil))
}
