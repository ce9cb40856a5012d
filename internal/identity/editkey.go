package identity

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const editKeyBytes = 24

// NewEditKey returns a fresh random capability secret. Only its hash is
// ever stored; the plaintext goes back to the submitter once.
func NewEditKey() (string, error) {
	buf := make([]byte, editKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate edit key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
