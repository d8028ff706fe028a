package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifySignature checks the x-line-signature header against the raw webhook
// body. The signature is the base64-encoded HMAC-SHA256 of the exact request
// bytes keyed with the channel secret, so callers must pass the body as it
// arrived on the wire, never a re-serialized form.
//
// Returns false when the secret or signature is empty or the lengths do not
// match; the comparison itself is constant-time.
func VerifySignature(channelSecret string, body []byte, signature string) bool {
	if channelSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if len(expected) != len(signature) {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
