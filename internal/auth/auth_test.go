package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aeris-platform/aeris/internal/apierr"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("expected matching password to verify")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Error("expected mismatched password to fail")
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 60)
	userID := uuid.New()

	token, err := issuer.IssueToken(userID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	got, err := issuer.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if got != userID {
		t.Errorf("VerifyToken subject = %v, want %v", got, userID)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", 60)
	token, err := issuer.IssueToken(uuid.New())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	other := NewTokenIssuer("secret-b", 60)
	_, err = other.VerifyToken(token)
	if apierr.KindOf(err) != apierr.KindAuth {
		t.Fatalf("KindOf(err) = %v, want KindAuth", apierr.KindOf(err))
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 60)

	past := time.Now().UTC().Add(-time.Hour)
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	})
	signed, err := expiredToken.SignedString(issuer.secretKey)
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	_, err = issuer.VerifyToken(signed)
	if apierr.KindOf(err) != apierr.KindAuth {
		t.Fatalf("KindOf(err) = %v, want KindAuth", apierr.KindOf(err))
	}
}
