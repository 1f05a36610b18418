package metaapi

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/craftable/logx"
)

// Mock simulates the Cloud API for local development and tests. It
// records every call so tests can assert on outbound traffic.
type Mock struct {
	// Latency is waited per simulated call; zero means no delay.
	Latency time.Duration

	mu           sync.Mutex
	typingCalls  []TypingCall
	sentMessages []SentMessage
}

// TypingCall is one recorded typing-indicator send.
type TypingCall struct {
	RecipientPhone string
	MessageID      string
}

// SentMessage is one recorded outbound message with its parts.
type SentMessage struct {
	RecipientPhone string
	Parts          []string
}

// NewMock creates a mock Cloud API client.
func NewMock() *Mock {
	logx.Info("using mock Meta API client; outbound sends will be simulated")
	return &Mock{}
}

func (m *Mock) SendTypingIndicator(ctx context.Context, recipientPhone, messageID string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.typingCalls = append(m.typingCalls, TypingCall{RecipientPhone: recipientPhone, MessageID: messageID})
	m.mu.Unlock()

	logx.Info("[mock meta] typing indicator for %s (msg %s)", recipientPhone, messageID)
	return nil
}

func (m *Mock) SendMessage(ctx context.Context, recipientPhone string, parts []string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.sentMessages = append(m.sentMessages, SentMessage{RecipientPhone: recipientPhone, Parts: parts})
	m.mu.Unlock()

	for i, part := range parts {
		preview := part
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		logx.Info("[mock meta] part %d/%d to %s: %s", i+1, len(parts), recipientPhone, preview)
	}
	return nil
}

// TypingCalls returns a snapshot of recorded typing-indicator sends.
func (m *Mock) TypingCalls() []TypingCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TypingCall, len(m.typingCalls))
	copy(out, m.typingCalls)
	return out
}

// SentMessages returns a snapshot of recorded outbound messages.
func (m *Mock) SentMessages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sentMessages))
	copy(out, m.sentMessages)
	return out
}

func (m *Mock) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
