package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	TokenLength   = 8
)

// NewAccessToken returns a short random base36 token for sharing a presentation.
// It is not meant to be unguessable; uniqueness is enforced by the catalog.
func NewAccessToken() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, TokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate access token: %w", err)
		}
		b[i] = tokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
