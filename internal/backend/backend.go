// Package backend talks to the chat backend that owns users, threads
// and message processing. The relay never stores conversation data
// itself; everything stateful lives behind this client.
package backend

import (
	"context"
	"time"

	"github.com/Abraxas-365/craftable/errx"
)

// Error registry for backend client operations. Each operation fails
// with its own code so callers can react per step.
var (
	Registry = errx.NewRegistry("BACKEND")

	ErrRegistrationFailed   = Registry.Register("REGISTRATION_FAILED", errx.TypeExternal, 502, "User registration failed")
	ErrExistsCheckFailed    = Registry.Register("EXISTS_CHECK_FAILED", errx.TypeExternal, 502, "User existence check failed")
	ErrThreadCreationFailed = Registry.Register("THREAD_CREATION_FAILED", errx.TypeExternal, 502, "Thread creation failed")
	ErrThreadInfoFailed     = Registry.Register("THREAD_INFO_FAILED", errx.TypeExternal, 502, "Retrieving thread info failed")
	ErrThreadHistoryFailed  = Registry.Register("THREAD_HISTORY_FAILED", errx.TypeExternal, 502, "Retrieving thread history failed")
	ErrProcessingFailed     = Registry.Register("PROCESSING_FAILED", errx.TypeExternal, 502, "Message processing failed")
)

// Registration is the backend's answer to a register-user call.
type Registration struct {
	Status string `json:"status"`
	UserID string `json:"user_id"`
}

// ThreadInfo identifies the thread a user last interacted with.
// ThreadID is empty when the user has no threads yet; LastMessageTime
// is nil when the thread has no messages.
type ThreadInfo struct {
	ThreadID        string
	LastMessageTime *time.Time
}

// HistoryMessage is one entry of a thread's transcript.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is a thread transcript as the backend returns it.
type History struct {
	ThreadID string           `json:"thread_id"`
	Messages []HistoryMessage `json:"messages"`
}

// Client is the port the conversation manager depends on. One shared
// instance serves all concurrent conversations.
type Client interface {
	// RegisterUser creates a backend account for a WhatsApp number.
	RegisterUser(ctx context.Context, phoneNum, preferredLanguage string) (*Registration, error)

	// CheckUserExists reports whether the number is already registered.
	CheckUserExists(ctx context.Context, phoneNum string) (bool, error)

	// CreateThread opens a new conversation thread with the given title.
	CreateThread(ctx context.Context, phoneNum, title string) (string, error)

	// LastThreadInfo returns the user's most recent thread, if any.
	LastThreadInfo(ctx context.Context, phoneNum string) (*ThreadInfo, error)

	// ThreadHistory returns the transcript of one thread.
	ThreadHistory(ctx context.Context, phoneNum, threadID string) (*History, error)

	// ProcessMessage runs the user's text through the backend and
	// returns the full reply. The transport may stream; callers see
	// only the concatenated result.
	ProcessMessage(ctx context.Context, phoneNum, threadID, message string) (string, error)
}
