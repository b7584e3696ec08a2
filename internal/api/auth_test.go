package api

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestMintAndValidate(t *testing.T) {
	auth, err := NewAuthenticator([]byte("secret"), "xorgen", time.Minute)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}
	token, expires, err := auth.Mint("analyst", "cli", 0)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if until := time.Until(expires); until <= 0 || until > time.Minute {
		t.Fatalf("expected default ttl of one minute, got %s", until)
	}
	claims, err := auth.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.Subject != "analyst" || claims.Issuer != "xorgen" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "cli" {
		t.Fatalf("unexpected audience %v", claims.Audience)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Fatalf("expected uuid jti, got %q", claims.ID)
	}
}

func TestMintCapsTTL(t *testing.T) {
	auth, err := NewAuthenticator([]byte("secret"), "xorgen", time.Minute)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}
	_, expires, err := auth.Mint("analyst", "", 72*time.Hour)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if time.Until(expires) > maxTokenTTL {
		t.Fatalf("expected ttl to be capped, expires %s", expires)
	}
	if _, _, err := auth.Mint("  ", "", 0); err == nil {
		t.Fatal("expected empty subject to be rejected")
	}
}

func TestValidateRejects(t *testing.T) {
	auth, err := NewAuthenticator([]byte("secret"), "xorgen", time.Minute)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}
	other, err := NewAuthenticator([]byte("other-secret"), "xorgen", time.Minute)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}
	foreign, err := NewAuthenticator([]byte("secret"), "someone-else", time.Minute)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}

	wrongSecret, _, _ := other.Mint("analyst", "", 0)
	wrongIssuer, _, _ := foreign.Mint("analyst", "", 0)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "xorgen",
		Subject:   "analyst",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong secret", wrongSecret},
		{"wrong issuer", wrongIssuer},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.Validate(tt.token); err == nil {
				t.Fatal("expected validation to fail")
			}
		})
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	auth, err := NewAuthenticator([]byte("secret"), "xorgen", time.Minute)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}
	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := auth.Mint("analyst", "", time.Minute)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	auth.now = time.Now
	if _, err := auth.Validate(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestNewAuthenticatorRequiresSecretAndIssuer(t *testing.T) {
	if _, err := NewAuthenticator(nil, "xorgen", 0); err == nil {
		t.Fatal("expected missing secret to fail")
	}
	if _, err := NewAuthenticator([]byte("secret"), " ", 0); err == nil {
		t.Fatal("expected missing issuer to fail")
	}
}
