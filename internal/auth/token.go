// Package auth mints and verifies the HS256 bearer tokens used by both
// interactive logins and the pipeline runner.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zentriztech/zentriz-genesis/internal/access"
)

type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	TenantID string `json:"tenantId,omitempty"`
}

// Mint signs a token for the identity with the given lifetime.
func Mint(secret string, id access.Identity, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:    id.Email,
		Role:     id.Role,
		TenantID: id.TenantID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Verify parses a token and returns the identity it carries.
func Verify(secret, token string) (access.Identity, error) {
	if strings.TrimSpace(secret) == "" {
		return access.Identity{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return access.Identity{}, err
	}
	if !parsed.Valid {
		return access.Identity{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return access.Identity{}, errors.New("subject claim required")
	}
	return access.Identity{
		UserID:   claims.Subject,
		Email:    claims.Email,
		Role:     claims.Role,
		TenantID: claims.TenantID,
	}, nil
}
