package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-key-with-enough-length"

func TestTokenServiceRoundTrip(t *testing.T) {
	service, err := NewTokenService(time.Hour, "simorgh", "simorgh-api", testSecret)
	require.NoError(t, err)

	tenantID := uuid.New()
	token, expiresIn, err := service.GenerateTenantToken(tenantID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 3600, expiresIn)

	claims, err := service.ValidateTenantToken(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestTokenServiceRejectsForgedToken(t *testing.T) {
	service, err := NewTokenService(time.Hour, "simorgh", "simorgh-api", testSecret)
	require.NoError(t, err)

	other, err := NewTokenService(time.Hour, "simorgh", "simorgh-api", "a-different-secret-key-entirely-here")
	require.NoError(t, err)

	forged, _, err := other.GenerateTenantToken(uuid.New())
	require.NoError(t, err)

	_, err = service.ValidateTenantToken(forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = service.ValidateTenantToken("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	service, err := NewTokenService(-time.Minute, "simorgh", "simorgh-api", testSecret)
	require.NoError(t, err)

	token, _, err := service.GenerateTenantToken(uuid.New())
	require.NoError(t, err)

	_, err = service.ValidateTenantToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(time.Hour, "simorgh", "simorgh-api", "")
	assert.Error(t, err)
}
