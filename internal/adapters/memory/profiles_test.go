package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileStore(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore()

	role, err := s.RoleOf(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, role)

	require.NoError(t, s.SetRole(ctx, "u1", "owner"))
	require.NoError(t, s.SaveSitterPushToken(ctx, "u1", "tok"))

	role, _ = s.RoleOf(ctx, "u1")
	assert.Equal(t, "owner", role)
	owner, sitter := s.PushTokens("u1")
	assert.Empty(t, owner)
	assert.Equal(t, "tok", sitter)
}
