package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns the hex encoded sha256 of a token.
// Tokens are random strings, so no salt is used.
func HashToken(arg string) string {
	hasher := sha256.New()
	hasher.Write([]byte(arg))
	return hex.EncodeToString(hasher.Sum(nil))
}
