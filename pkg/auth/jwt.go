// Package auth provides JWT validation and request rate limiting for the
// admin surface of the API.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpiredToken is returned when the token's expiry has passed.
	ErrExpiredToken = errors.New("token has expired")
	// ErrInvalidSignature is returned when the signature check fails.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrInvalidToken covers every other validation failure.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the token claims the API cares about.
type Claims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig configures token validation.
type JWTConfig struct {
	SecretKey string
	Issuer    string
}

// JWTValidator validates HS256 bearer tokens.
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator. The secret is required.
func NewJWTValidator(cfg JWTConfig) (*JWTValidator, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("jwt secret key is required")
	}
	return &JWTValidator{
		secret: []byte(cfg.SecretKey),
		issuer: cfg.Issuer,
	}, nil
}

// ValidateToken parses and validates a token string, returning its claims.
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		// Fall back to the standard subject claim.
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HasRole reports whether the claims carry the role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
