package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultHashCost = bcrypt.DefaultCost

// HashPassword derives a salted bcrypt hash. Cost values below the bcrypt
// minimum fall back to the default.
func HashPassword(password string, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost {
		cost = DefaultHashCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword reports whether password matches the stored hash. The
// comparison is constant time within bcrypt.
func VerifyPassword(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
