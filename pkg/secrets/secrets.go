// Package secrets wraps bcrypt so token handling stays in one place.
package secrets

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Hash returns a bcrypt hash of the given secret.
func Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare reports whether the secret matches the bcrypt hash.
func Compare(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// ConstantTimeEquals compares two plaintext tokens without leaking timing.
// Used when the deployment supplies an unhashed token.
func ConstantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
