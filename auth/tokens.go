// Package auth issues and verifies the API's bearer tokens and Google ID tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"carmarket/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenType  = "access"
	refreshTokenType = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type Claims struct {
	UserID string `json:"userId"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager signs access and refresh tokens with separate secrets and lifetimes.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssuePair returns a fresh access token and refresh token for userID.
func (m *TokenManager) IssuePair(userID string) (models.Tokens, error) {
	access, err := m.IssueAccess(userID)
	if err != nil {
		return models.Tokens{}, err
	}
	refresh, err := m.IssueRefresh(userID)
	if err != nil {
		return models.Tokens{}, err
	}
	return models.Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *TokenManager) IssueAccess(userID string) (string, error) {
	return m.sign(userID, accessTokenType, m.accessSecret, m.accessTTL)
}

// IssueRefresh signs a refresh token. Every token carries a random jti so two
// tokens issued within the same second never compare equal.
func (m *TokenManager) IssueRefresh(userID string) (string, error) {
	return m.sign(userID, refreshTokenType, m.refreshSecret, m.refreshTTL)
}

func (m *TokenManager) sign(userID, typ string, secret []byte, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// ParseAccess validates an access token and returns its claims.
func (m *TokenManager) ParseAccess(tokenString string) (*Claims, error) {
	return m.parse(tokenString, accessTokenType, m.accessSecret)
}

// ParseRefresh validates a refresh token. When the signature is good but the
// token has expired, the claims are returned together with ErrExpiredToken so
// the caller can still identify the user.
func (m *TokenManager) ParseRefresh(tokenString string) (*Claims, error) {
	return m.parse(tokenString, refreshTokenType, m.refreshSecret)
}

func (m *TokenManager) parse(tokenString, typ string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now))

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		if claims.Type != typ || claims.UserID == "" {
			return nil, ErrInvalidToken
		}
		return claims, ErrExpiredToken
	default:
		return nil, ErrInvalidToken
	}

	if claims.Type != typ || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
