// server/internal/auth/auth.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"pharma-redistribution-api-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims defines the payload for the JWT. Tokens are issued by the identity
// service; this server only verifies them.
type JWTClaims struct {
	UserID     string `json:"userID"`
	Role       string `json:"role"`
	FacilityID string `json:"facilityID"`
	jwt.RegisteredClaims
}

func (c JWTClaims) Actor() models.Actor {
	return models.Actor{UserID: c.UserID, FacilityID: c.FacilityID, Role: c.Role}
}

var ErrInvalidToken = errors.New("invalid or expired token")

type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// GenerateJWT signs claims for userID. Used by tooling and tests.
func (m *TokenManager) GenerateJWT(userID, role, facilityID string, ttl time.Duration) (string, error) {
	claims := &JWTClaims{
		UserID:     userID,
		Role:       role,
		FacilityID: facilityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) ParseJWT(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
