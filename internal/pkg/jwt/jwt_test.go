package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken_Claims(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", "1h")

	token, expiresAt, err := svc.GenerateAccessToken("op-1", "ops@example.com", user.RoleAdmin)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), expiresAt, 5)

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	claims, err := decoded.AsMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims["user_id"])
	assert.Equal(t, "admin", claims["role"])
	assert.Equal(t, TokenTypeAccess, claims["type"])
}

func TestGenerateAccessToken_BadDuration(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", "forever")
	_, _, err := svc.GenerateAccessToken("op-1", "ops@example.com", user.RoleViewer)
	assert.Error(t, err)
}

func TestStreamToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", "1h")

	token, expiresIn, err := svc.GenerateStreamToken("op-2", user.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	id, role, err := svc.ValidateStreamToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-2", id)
	assert.Equal(t, user.RoleViewer, role)
}

func TestValidateStreamToken_RejectsAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", "1h")

	access, _, err := svc.GenerateAccessToken("op-1", "ops@example.com", user.RoleAdmin)
	require.NoError(t, err)

	_, _, err = svc.ValidateStreamToken(access)
	assert.Error(t, err)
}

func TestValidateStreamToken_RejectsOtherSecret(t *testing.T) {
	issuer := NewJWTService("issuer-secret", "1h")
	verifier := NewJWTService("verifier-secret", "1h")

	token, _, err := issuer.GenerateStreamToken("op-1", user.RoleAdmin)
	require.NoError(t, err)

	_, _, err = verifier.ValidateStreamToken(token)
	assert.Error(t, err)
}

func TestRevokeToken_PrunesExpired(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", "1h")
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	svc.RevokeToken("old", now.Add(time.Minute))
	assert.True(t, svc.IsTokenRevoked("old"))

	now = now.Add(2 * time.Minute)
	svc.RevokeToken("new", now.Add(time.Hour))

	assert.False(t, svc.IsTokenRevoked("old"))
	assert.True(t, svc.IsTokenRevoked("new"))
	assert.False(t, svc.IsTokenRevoked("never-issued"))
}
