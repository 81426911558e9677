package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: malformed segments,
// signature mismatch and expiry all collapse into it so callers cannot
// distinguish which check failed.
var ErrInvalidToken = errors.New("invalid token")

type AccessClaims struct {
	UserID   string `json:"uid"`
	RoleCode string `json:"role"`
	jwt.RegisteredClaims
}

// Username returns the token subject.
func (c *AccessClaims) Username() string {
	return c.Subject
}

// IssueAccessToken signs a bearer token carrying {sub=username, uid, role,
// iat, exp} with HMAC-SHA256 over the shared secret.
func IssueAccessToken(secret string, userID string, username string, roleCode string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:   userID,
		RoleCode: roleCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies the signature and expiry of a token issued by
// IssueAccessToken and returns its claims. Expiry is strict: no leeway.
func ParseAccessToken(tokenStr string, secret string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// PeekClaims decodes the claims segment without verifying the signature.
// Only safe after ParseAccessToken has succeeded in the same call chain, or
// for diagnostics where the claims are never trusted.
func PeekClaims(tokenStr string) (*AccessClaims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenStr, &AccessClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
