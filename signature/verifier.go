package signature

import (
	"crypto/hmac"
	"encoding/hex"
)

// Verify checks whether the given hex signature matches the expected
// HMAC-SHA256 signature for the payload and secret. The comparison is
// constant-time. Returns false, never an error, on malformed hex or
// unparseable payloads.
func (s *Signer) Verify(payload []byte, secret, sig string) bool {
	return Verify(payload, secret, sig)
}

// Verify checks whether the given hex signature matches the expected
// HMAC-SHA256 signature for the payload and secret. See Signer.Verify.
func Verify(payload []byte, secret, sig string) bool {
	expected, err := Sign(payload, secret)
	if err != nil {
		return false
	}

	expectedMAC, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}

	gotMAC, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	return hmac.Equal(expectedMAC, gotMAC)
}
