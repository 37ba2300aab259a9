package hash

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Hash bcrypt-hashes an account key. Keys shorter than 8 characters are
// rejected before hashing.
func Hash(key string) (string, error) {
	if len(key) < 8 {
		return "", fmt.Errorf("account key must be at least 8 characters")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash account key: %w", err)
	}

	return string(hashedBytes), nil
}

func Compare(hashedKey, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedKey), []byte(key))
}
