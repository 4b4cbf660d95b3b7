package signature

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSecret creates a cryptographically random 256-bit signing secret,
// hex-encoded (64 characters). Secrets are generated once at subscription
// creation and never exposed again.
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("hookline: failed to generate random secret: " + err.Error())
	}
	return hex.EncodeToString(b)
}
