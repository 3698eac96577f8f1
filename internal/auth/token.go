// Package auth issues and verifies the bearer tokens used by the API.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Claims is the token payload: the user id plus standard expiry.
type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the given user id.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies signature and expiry and returns the user id.
func ParseToken(secret []byte, token string) (string, error) {
	if !ValidShape(token) {
		return "", ErrInvalidToken
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !parsed.Valid || claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}

// ValidShape rejects values that cannot be a JWT before any crypto work.
// Clients with stale local storage send the literal strings "undefined" and
// "null"; those and anything without three dot-separated segments are out.
func ValidShape(token string) bool {
	if token == "" || token == "undefined" || token == "null" {
		return false
	}
	return len(strings.Split(token, ".")) == 3
}
