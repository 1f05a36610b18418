package backend

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/craftable/logx"
)

// MockOptions tune the simulated backend. ErrorRate is the per-call
// probability (0.0-1.0) of an injected failure, used for fault
// injection in tests.
type MockOptions struct {
	MinLatency time.Duration
	MaxLatency time.Duration
	ErrorRate  float64
}

// Mock is an in-memory Client that simulates backend behavior with
// configurable latency and error injection. It keeps stateful user and
// thread data so multi-step flows behave realistically.
type Mock struct {
	opts MockOptions

	mu            sync.Mutex
	users         map[string]mockUser
	threads       map[string]*mockThread
	userCounter   int
	threadCounter int
}

type mockUser struct {
	userID            string
	preferredLanguage string
}

type mockThread struct {
	threadID        string
	phoneNum        string
	title           string
	messages        []HistoryMessage
	lastMessageTime *time.Time
}

// NewMock creates a mock backend client.
func NewMock(opts MockOptions) *Mock {
	logx.Info("using mock backend client (latency %v-%v, error rate %.2f)",
		opts.MinLatency, opts.MaxLatency, opts.ErrorRate)
	return &Mock{
		opts:    opts,
		users:   make(map[string]mockUser),
		threads: make(map[string]*mockThread),
	}
}

// simulate sleeps for a random latency within the configured window and
// injects code at the configured error rate. Honors ctx cancellation.
func (m *Mock) simulate(ctx context.Context, op string, code errx.Code) error {
	delay := m.opts.MinLatency
	if m.opts.MaxLatency > m.opts.MinLatency {
		delay += time.Duration(rand.Int63n(int64(m.opts.MaxLatency - m.opts.MinLatency)))
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Registry.New(code).WithCause(ctx.Err()).WithDetail("operation", op)
		}
	}

	if m.opts.ErrorRate > 0 && rand.Float64() < m.opts.ErrorRate {
		logx.Warn("mock backend injecting error for %s", op)
		return Registry.New(code).WithDetail("operation", op).WithDetail("injected", true)
	}
	return nil
}

func (m *Mock) RegisterUser(ctx context.Context, phoneNum, preferredLanguage string) (*Registration, error) {
	if err := m.simulate(ctx, "register_user", ErrRegistrationFailed); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[phoneNum]; ok {
		return nil, Registry.New(ErrRegistrationFailed).WithDetail("reason", "user already registered")
	}

	m.userCounter++
	userID := fmt.Sprintf("mock_user_%d", m.userCounter)
	m.users[phoneNum] = mockUser{userID: userID, preferredLanguage: preferredLanguage}

	logx.Info("mock backend registered user %s as %s", phoneNum, userID)
	return &Registration{Status: "success", UserID: userID}, nil
}

func (m *Mock) CheckUserExists(ctx context.Context, phoneNum string) (bool, error) {
	if err := m.simulate(ctx, "check_user_exists", ErrExistsCheckFailed); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[phoneNum]
	return ok, nil
}

func (m *Mock) CreateThread(ctx context.Context, phoneNum, title string) (string, error) {
	if err := m.simulate(ctx, "create_thread", ErrThreadCreationFailed); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[phoneNum]; !ok {
		return "", Registry.New(ErrThreadCreationFailed).WithDetail("reason", "user not found")
	}

	m.threadCounter++
	threadID := fmt.Sprintf("mock_thread_%d", m.threadCounter)
	m.threads[threadID] = &mockThread{threadID: threadID, phoneNum: phoneNum, title: title}

	logx.Info("mock backend created thread %s for %s", threadID, phoneNum)
	return threadID, nil
}

func (m *Mock) LastThreadInfo(ctx context.Context, phoneNum string) (*ThreadInfo, error) {
	if err := m.simulate(ctx, "get_last_thread_info", ErrThreadInfoFailed); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *mockThread
	for _, t := range m.threads {
		if t.phoneNum != phoneNum {
			continue
		}
		if latest == nil || laterThread(t, latest) {
			latest = t
		}
	}

	if latest == nil {
		return &ThreadInfo{}, nil
	}
	return &ThreadInfo{ThreadID: latest.threadID, LastMessageTime: latest.lastMessageTime}, nil
}

func laterThread(a, b *mockThread) bool {
	switch {
	case a.lastMessageTime == nil:
		return false
	case b.lastMessageTime == nil:
		return true
	default:
		return a.lastMessageTime.After(*b.lastMessageTime)
	}
}

func (m *Mock) ThreadHistory(ctx context.Context, phoneNum, threadID string) (*History, error) {
	if err := m.simulate(ctx, "get_thread_history", ErrThreadHistoryFailed); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.threads[threadID]
	if !ok {
		return nil, Registry.New(ErrThreadHistoryFailed).WithDetail("reason", "thread not found")
	}
	if t.phoneNum != phoneNum {
		return nil, Registry.New(ErrThreadHistoryFailed).WithDetail("reason", "thread access denied")
	}

	msgs := make([]HistoryMessage, len(t.messages))
	copy(msgs, t.messages)
	return &History{ThreadID: threadID, Messages: msgs}, nil
}

func (m *Mock) ProcessMessage(ctx context.Context, phoneNum, threadID, message string) (string, error) {
	if err := m.simulate(ctx, "process_message", ErrProcessingFailed); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.threads[threadID]
	if !ok {
		return "", Registry.New(ErrProcessingFailed).WithDetail("reason", "thread not found")
	}
	if t.phoneNum != phoneNum {
		return "", Registry.New(ErrProcessingFailed).WithDetail("reason", "thread access denied")
	}

	t.messages = append(t.messages, HistoryMessage{Role: "user", Content: message})

	response := fmt.Sprintf("This is a *mock assistant* running in test mode. Write 'long' to see a bigger mock response.\n\nYour message: %s", truncate(message, 100))
	if strings.Contains(strings.ToLower(message), "long") {
		response = longSampleResponse()
	}

	t.messages = append(t.messages, HistoryMessage{Role: "assistant", Content: response})
	now := time.Now().UTC()
	t.lastMessageTime = &now

	return response, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// longSampleResponse builds a markdown reply long enough to exercise
// splitting downstream.
func longSampleResponse() string {
	var b strings.Builder
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&b, "## Section %d\n\n", i)
		b.WriteString("**Key point.** ")
		b.WriteString(strings.Repeat("This sentence pads the section with plausible prose. ", 30))
		b.WriteString("\n\n")
	}
	return b.String()
}
