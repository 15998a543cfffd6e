package model

import "time"

// User represents a registered account. PasswordHash holds the Argon2id
// PHC string of the generated credential; the plaintext is returned to
// the caller exactly once at registration and never stored.
type User struct {
	ID             string
	Username       string
	PasswordHash   string
	Email          *string
	DateRegistered time.Time
	LastLogin      *time.Time
}

// AuthLogEntry records one successful credential verification.
type AuthLogEntry struct {
	ID        int64
	RequestIP string
	Timestamp time.Time
	UserID    *string
}

// VerificationResult is the outcome of a credential check.
type VerificationResult int

const (
	// ResultInvalid covers both unknown usernames and wrong passwords;
	// callers must not be able to tell the two apart.
	ResultInvalid VerificationResult = iota
	// ResultAuthenticated means the password matched and an audit row
	// was written.
	ResultAuthenticated
)
