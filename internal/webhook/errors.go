package webhook

import "github.com/Abraxas-365/craftable/errx"

// Error registry for the webhook surface.
var (
	Registry = errx.NewRegistry("WEBHOOK")

	ErrInvalidSignature   = Registry.Register("INVALID_SIGNATURE", errx.TypeAuthorization, 403, "Invalid signature")
	ErrInvalidPayload     = Registry.Register("INVALID_PAYLOAD", errx.TypeBadRequest, 400, "Invalid webhook payload")
	ErrVerificationFailed = Registry.Register("VERIFICATION_FAILED", errx.TypeAuthorization, 403, "Webhook verification failed")
	ErrMissingParams      = Registry.Register("MISSING_PARAMS", errx.TypeBadRequest, 400, "Missing verification parameters")
)
