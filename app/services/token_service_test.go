// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing
func createTestTokenService(t *testing.T) TokenService {
	t.Helper()
	svc, err := NewTokenService(15*time.Minute, "test-issuer", "test-audience", testSecretKey)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		tokenTTL    time.Duration
		secretKey   string
		expectError bool
	}{
		{
			name:        "valid configuration",
			tokenTTL:    15 * time.Minute,
			secretKey:   testSecretKey,
			expectError: false,
		},
		{
			name:        "missing secret key",
			tokenTTL:    15 * time.Minute,
			secretKey:   "",
			expectError: true,
		},
		{
			name:        "zero ttl falls back to default",
			tokenTTL:    0,
			secretKey:   testSecretKey,
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewTokenService(tt.tokenTTL, "test-issuer", "test-audience", tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestGenerateAdminToken(t *testing.T) {
	svc := createTestTokenService(t)

	token, expiresIn, err := svc.GenerateAdminToken("admin@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int((15 * time.Minute).Seconds()), expiresIn)

	// Two tokens for the same email must differ (unique jti)
	token2, _, err := svc.GenerateAdminToken("admin@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}

func TestValidateAdminToken(t *testing.T) {
	svc := createTestTokenService(t)

	token, _, err := svc.GenerateAdminToken("admin@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, AdminRole, claims.Role)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestValidateAdminToken_Invalid(t *testing.T) {
	svc := createTestTokenService(t)

	_, err := svc.ValidateAdminToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Token signed with a different key
	other, err := NewTokenService(15*time.Minute, "test-issuer", "test-audience", "another-secret-key-of-sufficient-len")
	require.NoError(t, err)
	foreign, _, err := other.GenerateAdminToken("admin@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateAdminToken(foreign)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateAdminToken_Expired(t *testing.T) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"email": "admin@example.com",
		"role":  AdminRole,
		"jti":   "test-token-id",
		"iat":   now.Add(-2 * time.Hour).Unix(),
		"exp":   now.Add(-1 * time.Hour).Unix(),
		"iss":   "test-issuer",
		"aud":   "test-audience",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecretKey))
	require.NoError(t, err)

	svc := createTestTokenService(t)
	_, err = svc.ValidateAdminToken(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateAdminToken_WrongRole(t *testing.T) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"email": "user@example.com",
		"role":  "customer",
		"jti":   "test-token-id",
		"iat":   now.Unix(),
		"exp":   now.Add(1 * time.Hour).Unix(),
		"iss":   "test-issuer",
		"aud":   "test-audience",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecretKey))
	require.NoError(t, err)

	svc := createTestTokenService(t)
	_, err = svc.ValidateAdminToken(signed)
	assert.ErrorIs(t, err, ErrTokenForbidden)
}
