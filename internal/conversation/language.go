package conversation

import "github.com/Abraxas-365/wabridge/internal/wamarkup"

// preferredLanguage guesses a registration language from the user's
// first message. Best-effort: script direction is the only signal, so
// RTL text maps to Arabic and everything else falls back to English.
func preferredLanguage(text string) string {
	if wamarkup.DirectionOf(text) == wamarkup.DirectionRTL {
		return "ar"
	}
	return "en"
}
