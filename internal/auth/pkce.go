package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCE holds a code verifier and its S256 challenge for one sign-in attempt.
type PKCE struct {
	Verifier  string
	Challenge string
}

// NewPKCE generates a random verifier (43 chars of base64url) and derives
// its challenge.
func NewPKCE() (PKCE, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return PKCE{}, fmt.Errorf("generate verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(b)
	return PKCE{Verifier: verifier, Challenge: Challenge(verifier)}, nil
}

// Challenge computes BASE64URL(SHA256(verifier)) without padding.
func Challenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
