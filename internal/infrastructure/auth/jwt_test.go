package auth

import (
	"testing"
	"time"

	"github.com/erp/construction/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestValidator() *TokenValidator {
	return NewTokenValidator(config.JWTConfig{
		Secret: testSecret,
		Issuer: "erp-idp",
		Leeway: 5 * time.Second,
	})
}

func newClaims() *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "erp-idp"},
		TenantID:         uuid.NewString(),
		UserID:           uuid.NewString(),
		Username:         "residente",
	}
}

func TestValidate_Success(t *testing.T) {
	claims := newClaims()
	token, err := Sign(claims, testSecret, time.Minute)
	require.NoError(t, err)

	got, err := newTestValidator().Validate(token)
	require.NoError(t, err)
	assert.Equal(t, claims.TenantID, got.TenantID)

	tenantID, err := got.TenantUUID()
	require.NoError(t, err)
	assert.Equal(t, claims.TenantID, tenantID.String())
}

func TestValidate_Rejections(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name   string
		mutate func(c *Claims)
		secret string
		ttl    time.Duration
		want   error
	}{
		{"expired", nil, testSecret, -time.Minute, ErrExpiredToken},
		{"wrong secret", nil, "another-secret-another-secret-00", time.Minute, ErrInvalidToken},
		{"wrong issuer", func(c *Claims) { c.Issuer = "someone-else" }, testSecret, time.Minute, ErrInvalidToken},
		{"refresh token", func(c *Claims) { c.TokenType = TokenTypeRefresh }, testSecret, time.Minute, ErrInvalidTokenType},
		{"missing tenant", func(c *Claims) { c.TenantID = "" }, testSecret, time.Minute, ErrMissingTenantID},
		{"malformed user", func(c *Claims) { c.UserID = "42" }, testSecret, time.Minute, ErrMissingUserID},
		{"not yet valid", func(c *Claims) {
			c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
		}, testSecret, 2 * time.Hour, ErrTokenNotYetValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := newClaims()
			if tt.mutate != nil {
				tt.mutate(claims)
			}
			token, err := Sign(claims, tt.secret, tt.ttl)
			require.NoError(t, err)

			_, err = v.Validate(token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_LeewayAcceptsSmallSkew(t *testing.T) {
	claims := newClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Second))
	token, err := Sign(claims, testSecret, 0)
	require.NoError(t, err)

	_, err = newTestValidator().Validate(token)
	assert.NoError(t, err)
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, newClaims()).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = newTestValidator().Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = newTestValidator().Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
