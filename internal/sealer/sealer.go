// Package sealer provides symmetric encryption of private key material
// for at-rest storage. Keys are sealed with AES-256-CBC under a key
// derived from a shared secret; tokens are base64(iv || ciphertext).
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrIntegrity indicates a token that is malformed, truncated, or was
// sealed under a different secret. Callers should treat it as store
// corruption or secret mismatch, not a client error.
var ErrIntegrity = errors.New("sealed token failed integrity check")

// errMissingSecret is returned by New when constructed without a secret.
var errMissingSecret = errors.New("sealer secret must not be empty")

// Sealer encrypts and decrypts byte strings with a fixed derived key.
// It is immutable after construction and safe for concurrent use.
type Sealer struct {
	key [32]byte
}

// New derives the AES key as SHA-256 of secret. An empty secret is a
// configuration error; the config layer enforces presence before this
// is ever called.
func New(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, errMissingSecret
	}
	return &Sealer{key: sha256.Sum256(secret)}, nil
}

// Seal encrypts plaintext under a fresh random 16-byte IV and returns
// base64(iv || ciphertext). The IV is never reused, so sealing the same
// plaintext twice yields unrelated tokens.
func (s *Sealer) Seal(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Unseal reverses Seal. Any malformed input maps to ErrIntegrity.
func (s *Sealer) Unseal(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", ErrIntegrity)
	}

	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: truncated token", ErrIntegrity)
	}

	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	iv := raw[:aes.BlockSize]
	ciphertext := raw[aes.BlockSize:]

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: invalid padding", ErrIntegrity)
	}

	return string(unpadded), nil
}

// pkcs7Pad appends 1..blockSize bytes, each equal to the pad length.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// pkcs7Unpad validates and strips PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, errors.New("invalid pad length")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("inconsistent padding bytes")
		}
	}
	return data[:len(data)-padLen], nil
}
