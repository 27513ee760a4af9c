package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewVerifyToken returns a 64-character hex token for email verification
// links. The token is stored on the user row and consumed exactly once.
func NewVerifyToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
