// Package model defines domain entities for the application.
package model

// SigningKey is a stored RSA signing key. The private half is sealed
// (AES-CBC encrypted and base64 encoded) before it ever reaches the
// database; Sealed never contains plaintext key material.
type SigningKey struct {
	Kid       int64
	Sealed    string
	ExpiresAt int64 // seconds since epoch, set once at creation
}

// JWK is the public JSON Web Key representation of a signing key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is the document served at /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}
