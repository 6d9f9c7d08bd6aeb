package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// GenerateSecureToken returns a 64-character hex token from a CSPRNG
func GenerateSecureToken() (string, error) {
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}
	return hex.EncodeToString(token), nil
}

// NewInvitationToken returns an opaque token embedded in invitation links
func NewInvitationToken() string {
	return uuid.NewString()
}
