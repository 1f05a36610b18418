package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// TestVerify_ValidSignature accepts a correctly signed body.
func TestVerify_ValidSignature(t *testing.T) {
	v := NewSignatureVerifier([]string{"topsecret"})
	body := []byte(`{"object":"whatsapp_business_account"}`)

	if err := v.Verify(body, sign("topsecret", body)); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

// TestVerify_SecondSecretMatches tries secrets in order until one
// matches.
func TestVerify_SecondSecretMatches(t *testing.T) {
	v := NewSignatureVerifier(SplitSecrets("old-secret,new-secret"))
	body := []byte(`{"object":"whatsapp_business_account"}`)

	if err := v.Verify(body, sign("new-secret", body)); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

// TestVerify_Rejections covers the failure modes of the gate.
func TestVerify_Rejections(t *testing.T) {
	v := NewSignatureVerifier([]string{"topsecret"})
	body := []byte(`{"object":"whatsapp_business_account"}`)
	valid := sign("topsecret", body)

	tampered := append([]byte(nil), body...)
	tampered[0] ^= 0x01

	cases := []struct {
		name   string
		body   []byte
		header string
	}{
		{"missing header", body, ""},
		{"malformed header", body, "md5=abcdef"},
		{"wrong secret", body, sign("not-the-secret", body)},
		{"tampered body", tampered, valid},
		{"truncated digest", body, valid[:len(valid)-2]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := v.Verify(tc.body, tc.header); err == nil {
				t.Fatalf("Verify() = nil, want error")
			}
		})
	}
}

// TestNewSignatureVerifier_DropsBlankSecrets ignores empty and
// whitespace-only entries from sloppy comma-separated config.
func TestNewSignatureVerifier_DropsBlankSecrets(t *testing.T) {
	v := NewSignatureVerifier(SplitSecrets("topsecret, ,"))
	body := []byte("payload")

	if err := v.Verify(body, sign("topsecret", body)); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
	if err := v.Verify(body, sign("", body)); err == nil {
		t.Fatal("Verify() accepted a signature under a blank secret")
	}
}
