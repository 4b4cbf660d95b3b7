package signature_test

import (
	"encoding/hex"
	"testing"

	"github.com/hookline/hookline/signature"
)

func TestGenerateSecret(t *testing.T) {
	s := signature.GenerateSecret()

	if len(s) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Errorf("secret is not valid hex: %v", err)
	}

	if signature.GenerateSecret() == s {
		t.Error("two generated secrets are equal")
	}
}
