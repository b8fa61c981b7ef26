// Package services provides external service integrations and technical concerns like tokens and embeddings
package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kavehjm/Simorgh/utils"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenService issues and validates tenant-bound JWTs. Every data-plane
// request carries one of these tokens; the tenant claim inside it is the only
// source of the isolation context.
type TokenService interface {
	GenerateTenantToken(tenantID uuid.UUID) (token string, expiresIn int, err error)
	ValidateTenantToken(token string) (*TenantTokenClaims, error)
}

// TenantTokenClaims represents the claims in a tenant JWT
type TenantTokenClaims struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenID   string    `json:"jti"`
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	tokenTTL  time.Duration
	secretKey []byte
	issuer    string
	audience  string
}

// NewTokenService creates a new token service
func NewTokenService(tokenTTL time.Duration, issuer, audience, secretKey string) (TokenService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}

	return &TokenServiceImpl{
		tokenTTL:  tokenTTL,
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
	}, nil
}

// GenerateTenantToken generates a signed token carrying the tenant claim
func (s *TokenServiceImpl) GenerateTenantToken(tenantID uuid.UUID) (string, int, error) {
	now := utils.UTCNow()

	tokenID, err := generateTokenID()
	if err != nil {
		return "", 0, err
	}

	claims := jwt.MapClaims{
		"tenant_id": tenantID.String(),
		"jti":       tokenID,
		"iat":       now.Unix(),
		"exp":       now.Add(s.tokenTTL).Unix(),
		"iss":       s.issuer,
		"aud":       s.audience,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", 0, err
	}

	return signed, int(s.tokenTTL.Seconds()), nil
}

// ValidateTenantToken validates a tenant JWT and returns claims
func (s *TokenServiceImpl) ValidateTenantToken(token string) (*TenantTokenClaims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "expired") || strings.Contains(err.Error(), "exp") {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	rawTenantID, ok := claims["tenant_id"].(string)
	if !ok {
		return nil, ErrTokenInvalid
	}
	tenantID, err := uuid.Parse(rawTenantID)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	tokenID, ok := claims["jti"].(string)
	if !ok {
		return nil, ErrTokenInvalid
	}

	issuedAt, ok := claims["iat"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	expiresAt, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	if utils.UTCNow().After(time.Unix(int64(expiresAt), 0)) {
		return nil, ErrTokenExpired
	}

	return &TenantTokenClaims{
		TenantID:  tenantID,
		TokenID:   tokenID,
		IssuedAt:  time.Unix(int64(issuedAt), 0),
		ExpiresAt: time.Unix(int64(expiresAt), 0),
	}, nil
}

// generateTokenID generates a unique token ID
func generateTokenID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}
