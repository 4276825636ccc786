package crypto

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("p1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if bytes.Equal(hash, []byte("p1")) {
		t.Fatalf("hash must not equal plaintext")
	}
	if err := ComparePassword(hash, "p1"); err != nil {
		t.Fatalf("compare password: %v", err)
	}
	if err := ComparePassword(hash, "p2"); err == nil {
		t.Fatalf("expected mismatch for wrong password")
	}
}

func TestHashPasswordSaltsEachHash(t *testing.T) {
	first, err := HashPassword("same", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	second, err := HashPassword("same", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatalf("expected distinct salted hashes")
	}
}

func TestHashPasswordFallsBackToDefaultCost(t *testing.T) {
	hash, err := HashPassword("p1", 99)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cost, err := bcrypt.Cost(hash)
	if err != nil {
		t.Fatalf("read cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", cost)
	}
}
