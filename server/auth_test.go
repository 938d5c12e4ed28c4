package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundtrip(t *testing.T) {
	authority := NewTokenAuthority([]byte("test-secret"))

	token, err := authority.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, ok := authority.Verify(token)
	assert.True(t, ok)
	assert.Equal(t, "alice", username)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenAuthority([]byte("one-secret")).Issue("alice")
	require.NoError(t, err)

	_, ok := NewTokenAuthority([]byte("another-secret")).Verify(token)
	assert.False(t, ok, "A token signed with a different secret must not verify")
}

func TestTokenGarbage(t *testing.T) {
	authority := NewTokenAuthority([]byte("test-secret"))

	_, ok := authority.Verify("not.a.token")
	assert.False(t, ok)

	_, ok = authority.Verify("")
	assert.False(t, ok)
}
