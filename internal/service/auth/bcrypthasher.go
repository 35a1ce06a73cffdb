package auth

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hasher of the game server key
// Key is pre-hashed with sha256, cause bcrypt ignores everything after 72 bytes
type BcryptHasher struct{}

func (h BcryptHasher) Hash(key string) (string, error) {
	sum := sha256.Sum256([]byte(key))
	hash, err := bcrypt.GenerateFromPassword(sum[:], bcrypt.DefaultCost)
	return string(hash), err
}

// Compare known hash and key provided by caller
func (h BcryptHasher) Compare(hashedKey string, key string) error {
	sum := sha256.Sum256([]byte(key))
	return bcrypt.CompareHashAndPassword([]byte(hashedKey), sum[:])
}
