package authflow

import (
	"crypto/rand"
	"encoding/base64"
)

// stateLength is the number of random bytes behind each state and nonce
// value. 32 bytes gives 256 bits of entropy, enough that a redirect cannot
// be replayed or guessed even across many concurrent attempts.
const stateLength = 32

// GenerateState creates a random, URL-safe string for the state parameter.
func GenerateState() (string, error) {
	return randomURLSafe()
}

// GenerateNonce creates a random, URL-safe string for the nonce parameter.
func GenerateNonce() (string, error) {
	return randomURLSafe()
}

func randomURLSafe() (string, error) {
	b := make([]byte, stateLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
