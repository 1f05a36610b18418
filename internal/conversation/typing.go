package conversation

import (
	"time"

	"github.com/Abraxas-365/craftable/logx"
)

// RunTypingIndicator sends one immediate typing indicator, then keeps
// sending follow-ups on the configured interval until StopTyping is
// called or the safety cap elapses. Indicator failures are logged and
// swallowed; they never abort the workflow. Runs on the caller's
// goroutine and blocks until the loop ends, so spawn it as a
// background task.
func (c *Conversation) RunTypingIndicator() {
	if c.in.SenderPhone == "" || c.in.MessageID == "" {
		logx.Error("[%s] cannot start typing indicator loop: missing sender phone or message id", c.id)
		return
	}

	first := time.Now()
	c.sendTypingIndicator()

	ticker := time.NewTicker(c.m.opts.TypingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.typingCtx.Done():
			logx.Debug("[%s] typing indicator loop cancelled", c.id)
			return
		case <-ticker.C:
			elapsed := time.Since(first)
			if elapsed > c.m.opts.TypingMaxDuration {
				logx.Warn("[%s] typing indicator loop exceeded maximum duration of %v, stopping", c.id, c.m.opts.TypingMaxDuration)
				return
			}
			logx.Debug("[%s] sending follow-up typing indicator after %.1fs", c.id, elapsed.Seconds())
			c.sendTypingIndicator()
		}
	}
}

// StopTyping cancels the typing-indicator loop. Safe to call multiple
// times and before the loop has started.
func (c *Conversation) StopTyping() {
	c.typingOnce.Do(c.cancelTyping)
}

func (c *Conversation) sendTypingIndicator() {
	if err := c.m.meta.SendTypingIndicator(c.typingCtx, c.in.SenderPhone, c.in.MessageID); err != nil {
		logx.Error("[%s] error sending typing indicator: %v", c.id, err)
	}
}
