package auth

import (
	"strings"
	"testing"
)

func TestHasher_Format(t *testing.T) {
	t.Parallel()

	h := NewHasher()

	hash, err := h.Hash("some-generated-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=") {
		t.Errorf("hash should be in PHC format, got: %s", hash)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("hash should have 6 parts, got %d", len(parts))
	}
	if parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("expected m=65536,t=3,p=4, got: %s", parts[3])
	}
}

func TestHasher_SaltUniqueness(t *testing.T) {
	t.Parallel()

	h := NewHasher()
	password := "the-same-password"

	hash1, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	hash2, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if hash1 == hash2 {
		t.Error("same password should produce different hashes due to random salt")
	}

	match1, _ := h.Verify(password, hash1)
	match2, _ := h.Verify(password, hash2)
	if !match1 || !match2 {
		t.Error("both hashes should verify correctly")
	}
}

func TestHasher_Verify(t *testing.T) {
	t.Parallel()

	h := NewHasher()

	hash, err := h.Hash("correct-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	match, err := h.Verify("correct-password", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !match {
		t.Error("correct password should verify")
	}

	match, err = h.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if match {
		t.Error("wrong password should not verify")
	}
}

func TestHasher_VerifyMalformedHash(t *testing.T) {
	t.Parallel()

	h := NewHasher()

	for _, encoded := range []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA",
	} {
		if _, err := h.Verify("password", encoded); err == nil {
			t.Errorf("expected error for malformed hash %q", encoded)
		}
	}
}

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	p1 := GeneratePassword()
	p2 := GeneratePassword()

	if len(p1) == 0 {
		t.Fatal("generated password should be non-empty")
	}
	if p1 == p2 {
		t.Error("generated passwords should be unique")
	}
}
