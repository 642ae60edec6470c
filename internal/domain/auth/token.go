// Package auth signs and verifies the principal-scoped JWT tokens the HTTP
// layer uses to attribute validations.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stayonboard-server-go/internal/platform/errors"
)

// AuthToken signs and verifies principal scoped JWT tokens.
type AuthToken struct {
	secretKey []byte
	ttl       time.Duration
}

// NewAuthToken builds a token helper using the provided secret.
func NewAuthToken(secretKey string) *AuthToken {
	return &AuthToken{
		secretKey: []byte(secretKey),
		ttl:       24 * time.Hour,
	}
}

// WithTTL allows customising the expiration duration. Negative values issue
// already-expired tokens, which only tests have a use for.
func (at *AuthToken) WithTTL(ttl time.Duration) *AuthToken {
	if ttl != 0 {
		at.ttl = ttl
	}
	return at
}

// GenerateToken issues a JWT for the provided principal.
func (at *AuthToken) GenerateToken(principal string) (string, error) {
	const op = "auth.generate"
	if len(at.secretKey) == 0 {
		return "", errors.New(errors.KindConfig, op, "auth token secret is empty")
	}
	if principal == "" {
		return "", errors.New(errors.KindInvalidParameters, op, "principal required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": principal,
		"exp": now.Add(at.ttl).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", errors.Wrap(errors.KindUnknown, op, "sign token", err)
	}
	return signed, nil
}

// VerifyToken validates the JWT and extracts the principal.
func (at *AuthToken) VerifyToken(tokenString string) (string, error) {
	const op = "auth.verify"
	if len(at.secretKey) == 0 {
		return "", errors.New(errors.KindConfig, op, "auth token secret is empty")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New(errors.KindForbidden, op, "unexpected signing method")
		}
		return at.secretKey, nil
	})
	if err != nil {
		return "", errors.Wrap(errors.KindForbidden, op, "parse token", err)
	}
	if !token.Valid {
		return "", errors.New(errors.KindForbidden, op, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New(errors.KindForbidden, op, "invalid claims")
	}
	principal, ok := claims["sub"].(string)
	if !ok || principal == "" {
		return "", errors.New(errors.KindForbidden, op, "missing subject claim")
	}
	return principal, nil
}
