package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-user-service/internal/model"
)

const (
	TokenTypeAccess  = "access_token"
	TokenTypeRefresh = "refresh_token"
)

// jtiEntropyBytes is the amount of randomness behind each jti. The jti is an
// opaque unique handle, not a secret; the signature carries the security.
const jtiEntropyBytes = 32

// Claims is the signed claim bag carried by both token kinds. The jti of a
// refresh token lives in RegisteredClaims.ID.
type Claims struct {
	TokenType string `json:"token_type"`
	UserID    int64  `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates the access/refresh token pair. The secret
// and signing method are fixed at construction and immutable afterwards.
type TokenManager struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string, algorithm string, accessTTL time.Duration, refreshTTL time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}

	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %q is not an HMAC method", algorithm)
	}

	return &TokenManager{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (m *TokenManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

func (m *TokenManager) IssueAccessToken(userID int64) (string, error) {
	now := time.Now().UTC()
	return m.sign(Claims{
		TokenType: TokenTypeAccess,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	})
}

func (m *TokenManager) IssueRefreshToken(userID int64, jti string) (string, error) {
	now := time.Now().UTC()
	return m.sign(Claims{
		TokenType: TokenTypeRefresh,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
	})
}

// DecodeAndValidate parses a signed token and checks it against expectedType.
// Failures map onto the model sentinel errors: expiry and signature problems
// surface first, then missing user_id, then a token-type mismatch.
func (m *TokenManager) DecodeAndValidate(tokenString string, expectedType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{m.method.Alg()}))

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, model.ErrTokenExpired
	case err != nil:
		return nil, model.ErrTokenMalformed
	case !token.Valid:
		return nil, model.ErrTokenMalformed
	}

	if claims.UserID == 0 {
		return nil, model.ErrTokenInvalidClaims
	}

	if claims.TokenType != expectedType {
		return nil, model.ErrWrongTokenType
	}

	return claims, nil
}

func (m *TokenManager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(m.method, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// GenerateJTI returns a fresh random identifier for a refresh token.
func GenerateJTI() (string, error) {
	buf := make([]byte, jtiEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate jti: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
