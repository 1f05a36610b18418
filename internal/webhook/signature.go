package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Abraxas-365/craftable/logx"
)

const signaturePrefix = "sha256="

// SignatureVerifier checks X-Hub-Signature-256 headers against one or
// more app secrets. Multiple secrets exist because one webhook URL may
// be shared across independent app registrations (test, staging,
// production); secrets are tried in configuration order.
type SignatureVerifier struct {
	secrets []string
}

// NewSignatureVerifier builds a verifier from comma-separated or
// already-split secrets. Blank entries are dropped.
func NewSignatureVerifier(secrets []string) *SignatureVerifier {
	cleaned := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return &SignatureVerifier{secrets: cleaned}
}

// SplitSecrets splits a comma-separated secret list.
func SplitSecrets(s string) []string {
	return strings.Split(s, ",")
}

// Verify checks that header carries a valid HMAC-SHA256 hex digest of
// body under at least one configured secret. Pure gate: no side
// effects beyond debug logging of which secret matched.
func (v *SignatureVerifier) Verify(body []byte, header string) error {
	if header == "" {
		logx.Warn("missing X-Hub-Signature-256 header")
		return Registry.New(ErrInvalidSignature).WithDetail("reason", "missing signature header")
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		logx.Warn("malformed X-Hub-Signature-256 header format")
		return Registry.New(ErrInvalidSignature).WithDetail("reason", "malformed signature header")
	}
	received := strings.TrimPrefix(header, signaturePrefix)

	for i, secret := range v.secrets {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		computed := hex.EncodeToString(mac.Sum(nil))

		if hmac.Equal([]byte(computed), []byte(received)) {
			logx.Debug("webhook signature verified with secret %d of %d", i+1, len(v.secrets))
			return nil
		}
	}

	logx.Error("invalid webhook signature; request isn't from Meta or the app secrets are misconfigured")
	return Registry.New(ErrInvalidSignature).
		WithDetail("reason", "no configured secret matched").
		WithDetail("secrets_tried", len(v.secrets))
}
