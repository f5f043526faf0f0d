// Package auth implements password hashing and JWT issue/verify for the
// HTTP surface's Bearer-token authentication: bcrypt for credentials,
// golang-jwt/jwt/v5 for signed, expiring access tokens. Neither
// library appears elsewhere in the reference corpus, so this follows each
// library's own documented API directly rather than a borrowed usage
// pattern (see DESIGN.md).
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aeris-platform/aeris/internal/apierr"
)

// HashPassword bcrypt-hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the bcrypt hash stored
// for the user.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// claims is the JWT payload: the user ID as the standard "sub" claim plus
// expiry.
type claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies signed access tokens.
type TokenIssuer struct {
	secretKey     []byte
	expireMinutes int
}

// NewTokenIssuer builds a TokenIssuer from process config. expireMinutes
// defaults to 60 when zero or negative.
func NewTokenIssuer(secretKey string, expireMinutes int) *TokenIssuer {
	if expireMinutes <= 0 {
		expireMinutes = 60
	}
	return &TokenIssuer{secretKey: []byte(secretKey), expireMinutes: expireMinutes}
}

// IssueToken returns a signed JWT whose subject is userID, expiring
// expireMinutes from now.
func (i *TokenIssuer) IssueToken(userID uuid.UUID) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(i.expireMinutes) * time.Minute)),
		},
	})
	signed, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature and expiry and returns the subject user ID.
// Any failure maps to apierr.Auth, which the HTTP layer renders as a 401.
func (i *TokenIssuer) VerifyToken(tokenString string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return i.secretKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, apierr.Auth("invalid or expired token")
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return uuid.Nil, apierr.Auth("invalid token claims")
	}
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, apierr.Auth("invalid token subject")
	}
	return userID, nil
}
