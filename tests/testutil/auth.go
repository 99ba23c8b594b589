package testutil

import (
	"testing"
	"time"

	"github.com/erp/construction/internal/infrastructure/auth"
	"github.com/erp/construction/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	// JWTSecret signs every token minted by BearerToken
	JWTSecret = "test-secret-key-at-least-32-chars"
	JWTIssuer = "erp-test"
)

// JWTConfig returns the validator settings matching BearerToken
func JWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: JWTSecret, Issuer: JWTIssuer}
}

// BearerToken returns an Authorization header value for the given tenant and user.
func BearerToken(t testing.TB, tenantID, userID uuid.UUID) string {
	t.Helper()

	token, err := auth.Sign(&auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: JWTIssuer, Subject: userID.String()},
		TenantID:         tenantID.String(),
		UserID:           userID.String(),
		Username:         "residente",
	}, JWTSecret, time.Hour)
	require.NoError(t, err, "Failed to sign test token")
	return "Bearer " + token
}
