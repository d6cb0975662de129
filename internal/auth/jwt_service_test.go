package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "custodesk"})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken("lan.tran", "admin")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "lan.tran", claims.Username)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, "custodesk", claims.Issuer)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	clock := issued

	svc, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return clock },
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken("lan.tran", "user")
	require.NoError(t, err)

	clock = issued.Add(2 * time.Minute)
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)

	other, err := NewJWTService(JWTConfig{Secret: "other-secret"})
	require.NoError(t, err)

	token, err := other.GenerateAccessToken("lan.tran", "user")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}
