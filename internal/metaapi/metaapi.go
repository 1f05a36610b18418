// Package metaapi sends outbound traffic to Meta's WhatsApp Cloud API:
// typing indicators and text messages.
package metaapi

import (
	"context"

	"github.com/Abraxas-365/craftable/errx"
)

var (
	Registry = errx.NewRegistry("METAAPI")

	ErrSendFailed            = Registry.Register("SEND_FAILED", errx.TypeExternal, 502, "Failed to send WhatsApp message")
	ErrTypingIndicatorFailed = Registry.Register("TYPING_INDICATOR_FAILED", errx.TypeExternal, 502, "Failed to send typing indicator")
)

// Client is the port the conversation manager uses for outbound sends.
// A single shared instance serves all conversations.
type Client interface {
	// SendTypingIndicator marks the message read and shows the typing
	// signal to the user.
	SendTypingIndicator(ctx context.Context, recipientPhone, messageID string) error

	// SendMessage delivers each part as its own WhatsApp message, in
	// order. Parts must already respect WhatsApp's length limit.
	SendMessage(ctx context.Context, recipientPhone string, parts []string) error
}
