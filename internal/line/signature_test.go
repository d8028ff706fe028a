package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureValid(t *testing.T) {
	body := []byte(`{"events":[]}`)
	if !VerifySignature("secret", body, sign("secret", body)) {
		t.Error("expected valid signature to verify")
	}
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	body := []byte(`{"events":[]}`)
	sig := sign("secret", body)
	if VerifySignature("secret", []byte(`{"events":[{}]}`), sig) {
		t.Error("expected tampered body to fail verification")
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"events":[]}`)
	if VerifySignature("other-secret", body, sign("secret", body)) {
		t.Error("expected signature from a different secret to fail")
	}
}

func TestVerifySignatureEmptyInputs(t *testing.T) {
	body := []byte("x")
	if VerifySignature("", body, sign("secret", body)) {
		t.Error("expected empty secret to fail")
	}
	if VerifySignature("secret", body, "") {
		t.Error("expected empty signature to fail")
	}
}

func TestVerifySignatureLengthMismatch(t *testing.T) {
	body := []byte("x")
	if VerifySignature("secret", body, "short") {
		t.Error("expected length mismatch to fail")
	}
}

func TestVerifySignatureExactBytesMatter(t *testing.T) {
	// Re-serialized JSON ("{}" vs "{ }") must not verify against the
	// original signature.
	raw := []byte(`{ "events": [] }`)
	sig := sign("secret", raw)
	if VerifySignature("secret", []byte(`{"events":[]}`), sig) {
		t.Error("expected re-serialized body to fail verification")
	}
	if !VerifySignature("secret", raw, sig) {
		t.Error("expected raw body to verify")
	}
}
