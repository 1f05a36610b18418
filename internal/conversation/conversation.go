// Package conversation orchestrates the per-message workflow: typing
// indicators, user registration, thread continuity and relaying the
// backend's reply to the user.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Abraxas-365/craftable/logx"
	"github.com/google/uuid"

	"github.com/Abraxas-365/wabridge/internal/backend"
	"github.com/Abraxas-365/wabridge/internal/metaapi"
	"github.com/Abraxas-365/wabridge/internal/wamarkup"
)

// User-facing fallback notices. The user never sees raw errors.
const (
	noticeRegistrationFailed = "Sorry, we couldn't register your account. Please try again later."
	noticeThreadInfoFailed   = "Sorry, we're having trouble accessing your chat history. Please try again later."
	noticeThreadCreateFailed = "An unexpected error occurred while creating a new chat session. Please try again later."
	noticeProcessingFailed   = "An error occurred while processing your message. Please try again later."
	noticeEmptyResponse      = "Sorry, we couldn't process your message. Please try again later."
	noticeUnexpectedError    = "An unexpected error occurred while processing your message. Please try again later."
)

const threadTitleWords = 6

// Options tune the manager. Zero values fall back to production
// defaults.
type Options struct {
	// RetentionWindow is the idle duration after which a thread is
	// considered expired and a new one is started.
	RetentionWindow time.Duration

	// TypingInterval is the delay between follow-up typing indicators.
	TypingInterval time.Duration

	// TypingMaxDuration caps the typing-indicator loop regardless of
	// cancellation, guarding against a hung backend.
	TypingMaxDuration time.Duration

	// ProcessTimeout bounds the backend processing call. A reply that
	// arrives after this deadline is abandoned.
	ProcessTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.RetentionWindow == 0 {
		o.RetentionWindow = 3 * time.Hour
	}
	if o.TypingInterval == 0 {
		o.TypingInterval = 26 * time.Second
	}
	if o.TypingMaxDuration == 0 {
		o.TypingMaxDuration = 300 * time.Second
	}
	if o.ProcessTimeout == 0 {
		o.ProcessTimeout = o.TypingMaxDuration
	}
	return o
}

// Manager holds the shared clients and drives conversations. One
// instance serves all concurrent webhook requests.
type Manager struct {
	backend backend.Client
	meta    metaapi.Client
	opts    Options
}

// NewManager wires the manager to its backend and Meta clients.
func NewManager(be backend.Client, meta metaapi.Client, opts Options) *Manager {
	return &Manager{backend: be, meta: meta, opts: opts.withDefaults()}
}

// Inbound carries the normalized fields of one incoming message.
type Inbound struct {
	SenderPhone     string
	MessageType     string
	MessageBody     map[string]any
	MessageID       string
	MessageUnixTime int64
}

// Text returns the text body of the message, or "" for non-text types.
func (in Inbound) Text() string {
	if body, ok := in.MessageBody["body"].(string); ok {
		return body
	}
	return ""
}

// Conversation is the per-message context. It lives from webhook
// receipt until the background work finishes.
type Conversation struct {
	m  *Manager
	in Inbound

	// correlation id carried through log lines of this conversation
	id string

	typingCtx    context.Context
	cancelTyping context.CancelFunc
	typingOnce   sync.Once
}

// Begin creates the conversation context for one inbound message.
func (m *Manager) Begin(in Inbound) *Conversation {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conversation{
		m:            m,
		in:           in,
		id:           uuid.NewString(),
		typingCtx:    ctx,
		cancelTyping: cancel,
	}
}

// ID returns the conversation's correlation id.
func (c *Conversation) ID() string { return c.id }

// Text returns the incoming message's text body, or "" for non-text
// messages.
func (c *Conversation) Text() string { return c.in.Text() }

// CheckAndRegisterUser reports whether the sender has a backend
// account, registering them on first contact. A failed existence check
// or registration returns false without raising; registration failures
// additionally notify the user.
func (c *Conversation) CheckAndRegisterUser(ctx context.Context) bool {
	exists, err := c.m.backend.CheckUserExists(ctx, c.in.SenderPhone)
	if err != nil {
		logx.Error("[%s] failed to check if user exists: %v", c.id, err)
		return false
	}
	if exists {
		return true
	}

	lang := "en"
	if c.in.MessageType == "text" {
		lang = preferredLanguage(c.in.Text())
	}

	if _, err := c.m.backend.RegisterUser(ctx, c.in.SenderPhone, lang); err != nil {
		logx.Error("[%s] failed to register user %s: %v", c.id, c.in.SenderPhone, err)
		c.SendMessage(ctx, noticeRegistrationFailed)
		return false
	}

	logx.Info("[%s] registered new whatsapp user (lang: %s): %s", c.id, lang, c.in.SenderPhone)
	return true
}

// HandleTextMessage runs the main pipeline: resolve the thread, process
// the text through the backend, then format, split and send the reply.
// Every failure path ends in a best-effort user notice; nothing
// propagates to the caller.
func (c *Conversation) HandleTextMessage(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("[%s] unexpected error processing text message: %v", c.id, r)
			c.StopTyping()
			c.SendMessage(ctx, noticeUnexpectedError)
		}
	}()

	text := c.in.Text()
	logx.Debug("[%s] whatsapp user said: %s", c.id, text)

	info, err := c.m.backend.LastThreadInfo(ctx, c.in.SenderPhone)
	if err != nil {
		logx.Error("[%s] failed to get thread info: %v", c.id, err)
		c.SendMessage(ctx, noticeThreadInfoFailed)
		return
	}

	elapsed, elapsedLog := timeSinceLastMessage(info.LastMessageTime)
	logx.Debug("[%s] time passed since user's last whatsapp message: %s", c.id, elapsedLog)

	threadID := info.ThreadID
	if threadID == "" || elapsed > c.m.opts.RetentionWindow {
		title := firstWords(text, threadTitleWords)

		threadID, err = c.m.backend.CreateThread(ctx, c.in.SenderPhone, title)
		if err != nil {
			logx.Error("[%s] failed to create thread: %v", c.id, err)
			c.SendMessage(ctx, noticeThreadCreateFailed)
			return
		}
		logx.Info("[%s] created a new thread for the whatsapp user", c.id)
	}

	pctx, cancel := context.WithTimeout(ctx, c.m.opts.ProcessTimeout)
	response, err := c.m.backend.ProcessMessage(pctx, c.in.SenderPhone, threadID, text)
	cancel()

	// Typing stops the moment processing finishes, success or not, so
	// no indicator can arrive after the real answer.
	c.StopTyping()

	if err != nil {
		logx.Error("[%s] failed to process message: %v", c.id, err)
		c.SendMessage(ctx, noticeProcessingFailed)
		return
	}
	if response == "" {
		logx.Warn("[%s] received an empty response from the backend", c.id)
		c.SendMessage(ctx, noticeEmptyResponse)
		return
	}

	formatted := wamarkup.Format(response)
	if formatted == "" {
		logx.Warn("[%s] response was empty after markdown conversion", c.id)
		c.SendMessage(ctx, noticeEmptyResponse)
		return
	}

	c.SendMessage(ctx, formatted)
}

// HandleUnsupportedMessage tells the user this media type isn't
// supported yet.
func (c *Conversation) HandleUnsupportedMessage(ctx context.Context) {
	msgType := c.in.MessageType
	if msgType == "" {
		logx.Error("[%s] cannot handle unsupported message: missing message type", c.id)
		return
	}

	if !strings.HasSuffix(msgType, "s") {
		msgType += "s"
	}
	// Meta labels media it cannot represent as "unsupported".
	msgType = strings.ReplaceAll(msgType, "unsupporteds", "this media type")

	c.SendMessage(ctx, "Sorry, I can't process "+msgType+" yet. Please send me a text message.")
}

// SendMessage splits text into WhatsApp-sized chunks and sends them in
// order. Send failures are logged and swallowed; the user is never
// re-notified about a failure to notify.
func (c *Conversation) SendMessage(ctx context.Context, text string) {
	c.SendMessageTo(ctx, c.in.SenderPhone, text)
}

// SendMessageTo is SendMessage toward an explicit recipient.
func (c *Conversation) SendMessageTo(ctx context.Context, recipientPhone, text string) {
	if recipientPhone == "" {
		logx.Error("[%s] cannot send whatsapp message: no recipient phone number", c.id)
		return
	}

	parts := wamarkup.Split(text)
	if err := c.m.meta.SendMessage(ctx, recipientPhone, parts); err != nil {
		logx.Error("[%s] error sending whatsapp message: %v", c.id, err)
	}
}

// firstWords joins the first n whitespace-separated words of text,
// used for new thread titles.
func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// timeSinceLastMessage returns the elapsed time since last, and a
// compact string for logging. A nil last means "no previous message"
// and reports an effectively infinite duration.
func timeSinceLastMessage(last *time.Time) (time.Duration, string) {
	if last == nil {
		return time.Duration(1<<63 - 1), "never"
	}
	elapsed := time.Since(*last)
	return elapsed, formatDelta(elapsed)
}

func formatDelta(d time.Duration) string {
	s := d.Seconds()
	switch {
	case s < 60:
		return fmt.Sprintf("%.1fsec", s)
	case s < 3600:
		return fmt.Sprintf("%.1fmins", s/60)
	case s < 86400:
		return fmt.Sprintf("%.1fhours", s/3600)
	default:
		return fmt.Sprintf("%.1fdays", s/86400)
	}
}
