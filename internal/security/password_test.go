package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-Planning!", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !VerifyPassword("s3cret-Planning!", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("s3cret-planning!", hash) {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	first, err := HashPassword("same-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := HashPassword("same-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if string(first) == string(second) {
		t.Error("two hashes of the same password are identical, salt missing")
	}
}

func TestHashPasswordCostFallback(t *testing.T) {
	hash, err := HashPassword("whatever", 0)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost(hash)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != DefaultHashCost {
		t.Errorf("cost = %d, want default %d", cost, DefaultHashCost)
	}
}
