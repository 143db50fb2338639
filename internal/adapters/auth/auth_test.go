package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = Config{Secret: "test-secret", Issuer: "walkies"}

func sign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestParse(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	tok := sign(t, jwt.MapClaims{"sub": "user-1", "role": "owner", "iss": "walkies", "exp": exp.Unix()}, testCfg.Secret)

	claims, err := Parse(tok, testCfg)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "owner", claims.Role)
	assert.WithinDuration(t, exp, claims.ExpiresAt, time.Second)
}

func TestParse_Rejects(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tests := map[string]string{
		"wrong secret": sign(t, jwt.MapClaims{"sub": "u", "iss": "walkies", "exp": exp}, "other"),
		"expired":      sign(t, jwt.MapClaims{"sub": "u", "iss": "walkies", "exp": time.Now().Add(-time.Hour).Unix()}, testCfg.Secret),
		"no expiry":    sign(t, jwt.MapClaims{"sub": "u", "iss": "walkies"}, testCfg.Secret),
		"wrong issuer": sign(t, jwt.MapClaims{"sub": "u", "iss": "evil", "exp": exp}, testCfg.Secret),
		"no subject":   sign(t, jwt.MapClaims{"iss": "walkies", "exp": exp}, testCfg.Secret),
		"garbage":      "not.a.token",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tok, testCfg)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := Parse("  ", testCfg)
	assert.True(t, errors.Is(err, ErrMissingToken))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}

type stubProfiles struct {
	role string
}

func (s stubProfiles) RoleOf(ctx context.Context, userID string) (string, error) { return s.role, nil }
func (s stubProfiles) SetRole(ctx context.Context, userID, role string) error    { return nil }
func (s stubProfiles) SaveOwnerPushToken(ctx context.Context, userID, token string) error {
	return nil
}
func (s stubProfiles) SaveSitterPushToken(ctx context.Context, userID, token string) error {
	return nil
}

func TestState(t *testing.T) {
	state := NewState(stubProfiles{role: "petsitter"})

	anon := context.Background()
	assert.False(t, state.IsAuthenticated(anon))
	_, ok := state.CurrentRole(anon)
	assert.False(t, ok)

	withRole := WithClaims(anon, &Claims{Subject: "u1", Role: "owner"})
	assert.True(t, state.IsAuthenticated(withRole))
	role, ok := state.CurrentRole(withRole)
	assert.True(t, ok)
	assert.Equal(t, "owner", role)

	fromProfile := WithClaims(anon, &Claims{Subject: "u2"})
	role, ok = state.CurrentRole(fromProfile)
	assert.True(t, ok)
	assert.Equal(t, "petsitter", role)

	unset := NewState(stubProfiles{})
	_, ok = unset.CurrentRole(fromProfile)
	assert.False(t, ok)
}
