package service

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of minted access tokens.
const DefaultTokenTTL = 15 * time.Minute

// Signer hands out the current private key for RS256 signing. The kid
// it returns correlates the token to a key in the published JWKS.
type Signer interface {
	SigningKey(ctx context.Context, now time.Time) (int64, *rsa.PrivateKey, error)
}

// TokenIssuer mints RS256 access tokens verifiable against the JWKS.
type TokenIssuer struct {
	signer Signer
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(signer Signer, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{signer: signer, issuer: issuer, ttl: ttl}
}

// Issue signs a token for userID with the newest valid key. The kid
// header lets verifiers pick the matching JWK.
func (t *TokenIssuer) Issue(ctx context.Context, userID string, now time.Time) (string, error) {
	kid, privateKey, err := t.signer.SigningKey(ctx, now)
	if err != nil {
		return "", fmt.Errorf("obtain signing key: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = strconv.FormatInt(kid, 10)

	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}
