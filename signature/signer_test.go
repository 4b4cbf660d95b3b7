package signature_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/hookline/hookline/signature"
)

func TestSignKnownVector(t *testing.T) {
	payload := []byte(`{"event":"test"}`)
	secret := "testsecret123"

	got, err := signature.Sign(payload, secret)
	if err != nil {
		t.Fatal(err)
	}

	// Compute expected HMAC-SHA256 over the canonical form independently.
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(`{"event":"test"}`))
	expected := hex.EncodeToString(mac.Sum(nil))

	if got != expected {
		t.Errorf("Sign() = %q, want %q", got, expected)
	}
}

func TestSignDeterministicAcrossKeyOrder(t *testing.T) {
	secret := "ordersecret"

	a := []byte(`{"b":2,"a":1,"nested":{"y":true,"x":[1,2,3]}}`)
	b := []byte(`{"nested":{"x":[1,2,3],"y":true},"a":1,"b":2}`)

	sigA, err := signature.Sign(a, secret)
	if err != nil {
		t.Fatal(err)
	}
	sigB, err := signature.Sign(b, secret)
	if err != nil {
		t.Fatal(err)
	}

	if sigA != sigB {
		t.Errorf("signatures differ across key order: %q vs %q", sigA, sigB)
	}
}

func TestSignRepeatedCallsEqual(t *testing.T) {
	payload := []byte(`{"invoice_id":"inv_01h2x","amount":9900}`)
	secret := "repeatsecret"

	first, err := signature.Sign(payload, secret)
	if err != nil {
		t.Fatal(err)
	}

	for range 5 {
		sig, err := signature.Sign(payload, secret)
		if err != nil {
			t.Fatal(err)
		}
		if sig != first {
			t.Fatalf("Sign() not deterministic: %q vs %q", sig, first)
		}
	}
}

func TestSignatureFormat(t *testing.T) {
	sig, err := signature.Sign([]byte(`{"k":"v"}`), "secret")
	if err != nil {
		t.Fatal(err)
	}

	// SHA256 = 32 bytes = 64 lowercase hex chars.
	if len(sig) != 64 {
		t.Errorf("expected signature length 64, got %d", len(sig))
	}
	for _, c := range sig {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("signature contains non-lowercase-hex character %q", c)
		}
	}
}

func TestSignInvalidPayload(t *testing.T) {
	if _, err := signature.Sign([]byte(`{not json`), "secret"); err == nil {
		t.Error("Sign() should fail on invalid JSON")
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	payload := []byte(`{"original":true,"n":42}`)
	secret := "roundtripsecret"

	sig, err := signature.Sign(payload, secret)
	if err != nil {
		t.Fatal(err)
	}
	if !signature.Verify(payload, secret, sig) {
		t.Error("Verify() returned false for valid signature")
	}

	// Reordered payload still verifies.
	reordered := []byte(`{"n":42,"original":true}`)
	if !signature.Verify(reordered, secret, sig) {
		t.Error("Verify() returned false for reordered payload")
	}
}

func TestVerifyMutatedSignature(t *testing.T) {
	payload := []byte(`{"data":"value"}`)
	secret := "mutationsecret"

	sig, err := signature.Sign(payload, secret)
	if err != nil {
		t.Fatal(err)
	}

	// Flip one hex character.
	mutated := []byte(sig)
	if mutated[0] == 'a' {
		mutated[0] = 'b'
	} else {
		mutated[0] = 'a'
	}

	if signature.Verify(payload, secret, string(mutated)) {
		t.Error("Verify() returned true for mutated signature")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	payload := []byte(`{"data":"value"}`)

	sig, err := signature.Sign(payload, "correct")
	if err != nil {
		t.Fatal(err)
	}

	if signature.Verify(payload, "wrong", sig) {
		t.Error("Verify() returned true for wrong secret")
	}
}

func TestVerifyMalformedHex(t *testing.T) {
	payload := []byte(`{"data":"value"}`)

	if signature.Verify(payload, "secret", "not-hex-at-all") {
		t.Error("Verify() returned true for malformed hex")
	}
	if signature.Verify(payload, "secret", "") {
		t.Error("Verify() returned true for empty signature")
	}
}
