// Package keys manages the RSA signing key lifecycle: generation,
// sealed storage, expiry-based JWKS issuance, and token signing keys.
package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/keymint/keymint/internal/metrics"
	"github.com/keymint/keymint/internal/model"
	"github.com/keymint/keymint/internal/sealer"
)

const (
	// DefaultKeyTTL is how long a generated key stays valid.
	DefaultKeyTTL = 24 * time.Hour
	// rsaKeyBits is the modulus size for generated keys.
	rsaKeyBits = 2048
)

// ErrNoValidKey indicates no non-expired signing key is available.
var ErrNoValidKey = errors.New("no valid signing key available")

// Store is the persistence surface the manager needs.
type Store interface {
	InsertKey(ctx context.Context, sealed string, expiresAt int64) (int64, error)
	CountValidKeys(ctx context.Context, now int64) (int, error)
	ListValidKeys(ctx context.Context, now int64) ([]model.SigningKey, error)
}

// Manager owns signing key generation and JWKS construction.
type Manager struct {
	store   Store
	sealer  *sealer.Sealer
	keyTTL  time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewManager creates a Manager. A nil recorder falls back to no-op metrics.
func NewManager(store Store, s *sealer.Sealer, keyTTL time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Manager {
	if keyTTL <= 0 {
		keyTTL = DefaultKeyTTL
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Manager{
		store:   store,
		sealer:  s,
		keyTTL:  keyTTL,
		logger:  logger.With("component", "keys.manager"),
		metrics: recorder,
	}
}

// EnsureValidKey generates, seals, and stores a new key if no
// non-expired key exists. Calling it when a valid key is present is a
// no-op, so it is safe on every startup and on a rotation timer. A
// concurrent race may over-provision a key; it never leaves zero.
func (m *Manager) EnsureValidKey(ctx context.Context, now time.Time) error {
	count, err := m.store.CountValidKeys(ctx, now.Unix())
	if err != nil {
		return fmt.Errorf("count valid keys: %w", err)
	}
	if count > 0 {
		return nil
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return fmt.Errorf("generate rsa key: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	sealed, err := m.sealer.Seal(string(privatePEM))
	if err != nil {
		return fmt.Errorf("seal private key: %w", err)
	}

	expiresAt := now.Add(m.keyTTL).Unix()
	kid, err := m.store.InsertKey(ctx, sealed, expiresAt)
	if err != nil {
		return fmt.Errorf("insert key: %w", err)
	}

	m.metrics.IncKeyGenerated()
	m.logger.Info("signing key generated",
		slog.Int64("kid", kid),
		slog.Int64("expires_at", expiresAt),
	)

	return nil
}

// BuildJWKS returns the public JWK form of every valid key, in the
// store's listing order. An unseal or parse failure on any record fails
// the whole response; a partial JWKS would hide store corruption.
func (m *Manager) BuildJWKS(ctx context.Context, now time.Time) (model.JWKS, error) {
	records, err := m.store.ListValidKeys(ctx, now.Unix())
	if err != nil {
		return model.JWKS{}, fmt.Errorf("list valid keys: %w", err)
	}

	jwks := model.JWKS{Keys: make([]model.JWK, 0, len(records))}
	for _, record := range records {
		privateKey, err := m.unsealKey(record.Sealed)
		if err != nil {
			return model.JWKS{}, fmt.Errorf("key %d: %w", record.Kid, err)
		}
		jwks.Keys = append(jwks.Keys, publicJWK(record.Kid, &privateKey.PublicKey))
	}

	return jwks, nil
}

// SigningKey returns the newest valid private key and its kid, for
// signing tokens whose verifiers consume the published JWKS.
func (m *Manager) SigningKey(ctx context.Context, now time.Time) (int64, *rsa.PrivateKey, error) {
	records, err := m.store.ListValidKeys(ctx, now.Unix())
	if err != nil {
		return 0, nil, fmt.Errorf("list valid keys: %w", err)
	}
	if len(records) == 0 {
		return 0, nil, ErrNoValidKey
	}

	newest := records[len(records)-1]
	privateKey, err := m.unsealKey(newest.Sealed)
	if err != nil {
		return 0, nil, fmt.Errorf("key %d: %w", newest.Kid, err)
	}

	return newest.Kid, privateKey, nil
}

// unsealKey recovers the RSA private key from a sealed PEM token.
func (m *Manager) unsealKey(sealed string) (*rsa.PrivateKey, error) {
	pemText, err := m.sealer.Unseal(sealed)
	if err != nil {
		return nil, fmt.Errorf("unseal: %w", err)
	}

	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("%w: not valid PEM", sealer.ErrIntegrity)
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		// Tolerate PKCS#8 in case the store predates the PKCS#1 format.
		parsed, err8 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err8 != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("stored key is not RSA")
		}
		privateKey = rsaKey
	}

	return privateKey, nil
}

// publicJWK encodes the public half of a key as an RS256 signature JWK.
func publicJWK(kid int64, pub *rsa.PublicKey) model.JWK {
	return model.JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: strconv.FormatInt(kid, 10),
		N:   b64urlUint(pub.N),
		E:   b64urlUint(big.NewInt(int64(pub.E))),
	}
}

// b64urlUint encodes an integer as its minimal big-endian bytes,
// base64url without padding, per RFC 7518 §6.3.
func b64urlUint(v *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(v.Bytes())
}
