// Package signature provides deterministic HMAC-SHA256 webhook signing and
// verification.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer computes HMAC-SHA256 signatures for webhook payloads.
type Signer struct{}

// NewSigner returns a new Signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Sign generates the HMAC-SHA256 signature for the given JSON payload.
// The payload is canonicalized first, so logically identical payloads produce
// identical signatures regardless of key order. The signature is returned as
// a lowercase hex string.
func (s *Signer) Sign(payload []byte, secret string) (string, error) {
	return Sign(payload, secret)
}

// Sign generates the HMAC-SHA256 signature for the given JSON payload.
// See Signer.Sign.
func Sign(payload []byte, secret string) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)

	return hex.EncodeToString(mac.Sum(nil)), nil
}
