package utils

import (
	"crypto/rand"  // Cryptographically secure randomness
	"encoding/hex" // Hex encoding
)

// RandomHex returns a random hex string of 2*n characters, used for
// password-reset tokens and admin-generated passwords.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
