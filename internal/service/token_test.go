package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fakeSigner returns one fixed key.
type fakeSigner struct {
	kid int64
	key *rsa.PrivateKey
}

func (f *fakeSigner) SigningKey(_ context.Context, _ time.Time) (int64, *rsa.PrivateKey, error) {
	return f.kid, f.key, nil
}

func TestTokenIssuer_Issue(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	issuer := NewTokenIssuer(&fakeSigner{kid: 7, key: key}, "keymint", 15*time.Minute)
	now := time.Now()

	signed, err := issuer.Issue(context.Background(), "user-123", now)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parsed, err := jwt.ParseWithClaims(signed, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodRS256 {
			t.Errorf("expected RS256, got %v", token.Method.Alg())
		}
		return &key.PublicKey, nil
	})
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}

	if kid, _ := parsed.Header["kid"].(string); kid != "7" {
		t.Errorf("expected kid header \"7\", got %q", parsed.Header["kid"])
	}

	claims := parsed.Claims.(*jwt.RegisteredClaims)
	if claims.Subject != "user-123" {
		t.Errorf("expected subject user-123, got %q", claims.Subject)
	}
	if claims.Issuer != "keymint" {
		t.Errorf("expected issuer keymint, got %q", claims.Issuer)
	}
	wantExp := now.Add(15 * time.Minute).Unix()
	if claims.ExpiresAt.Unix() != wantExp {
		t.Errorf("expected exp %d, got %d", wantExp, claims.ExpiresAt.Unix())
	}
}
