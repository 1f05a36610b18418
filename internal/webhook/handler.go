package webhook

import (
	"context"
	"time"

	"github.com/Abraxas-365/craftable/logx"
	"github.com/gofiber/fiber/v2"

	"github.com/Abraxas-365/wabridge/internal/conversation"
	"github.com/Abraxas-365/wabridge/internal/eventlog"
	"github.com/Abraxas-365/wabridge/internal/task"
)

const (
	registrationFailedNotice = "Sorry, we couldn't register you to our database. Please try again later."
	maintenanceNotice        = "We're temporarily down for maintenance, please try again later."
)

// HandlerConfig carries the deployment-level switches the webhook
// surface needs.
type HandlerConfig struct {
	VerifyToken         string
	DeploymentType      string
	Maintenance         bool
	MessageAgeThreshold time.Duration
}

// Handler owns the webhook endpoints. The synchronous portion must
// finish well inside the few seconds Meta allows before it retries, so
// everything after the fast checks runs as background tasks.
type Handler struct {
	cfg       HandlerConfig
	verifier  *SignatureVerifier
	parser    *Parser
	responder Responder
	manager   *conversation.Manager
	events    eventlog.Store
	devFilter DevFilter
}

// NewHandler wires the webhook surface.
func NewHandler(cfg HandlerConfig, verifier *SignatureVerifier, parser *Parser, responder Responder, manager *conversation.Manager, events eventlog.Store, devFilter DevFilter) *Handler {
	if devFilter == nil {
		devFilter = NoDevFilter()
	}
	return &Handler{
		cfg:       cfg,
		verifier:  verifier,
		parser:    parser,
		responder: responder,
		manager:   manager,
		events:    events,
		devFilter: devFilter,
	}
}

// Register mounts the routes on app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/", h.Health)
	app.Get("/whatsapp/v2", h.VerifyWebhook)
	app.Post("/whatsapp/v2", h.HandleWebhook)
}

// Health answers liveness probes.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "wabridge"})
}

// VerifyWebhook answers Meta's subscription handshake: echo the
// challenge when the mode and verify token match.
func (h *Handler) VerifyWebhook(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	verifyToken := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	logx.Debug("verification webhook received: mode=%s", mode)

	if mode == "" || verifyToken == "" {
		return Registry.New(ErrMissingParams)
	}
	if mode != "subscribe" || verifyToken != h.cfg.VerifyToken {
		logx.Error("webhook verification failed: invalid token or mode")
		return Registry.New(ErrVerificationFailed)
	}

	logx.Info("whatsapp webhook verified successfully")
	// Meta expects the raw challenge back as an HTML body.
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(challenge)
}

// HandleWebhook processes one webhook delivery: verify, parse, apply
// the fast reject rules, then hand the conversation to background
// work and acknowledge immediately.
func (h *Handler) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()

	if err := h.verifier.Verify(body, c.Get("X-Hub-Signature-256")); err != nil {
		return err
	}

	desc, err := h.parser.Parse(body)
	if err != nil {
		return h.responder.Respond(c, false, "Error processing webhook payload",
			fiber.StatusBadRequest, "INVALID_PAYLOAD", map[string]any{"error": err.Error()})
	}

	if !desc.IsTargetNumber {
		logx.Debug("ignoring webhook not intended for our WhatsApp business number")
		return h.responder.OK(c, "Skipping, as this webhook is not intended for our WhatsApp business number")
	}

	if desc.IsStatus {
		logx.Debug("ignoring status update message (e.g., delivered, read)")
		return h.responder.Respond(c, true, "Status message processed (ignored)",
			fiber.StatusOK, "STATUS_MESSAGE", nil)
	}

	conv := h.manager.Begin(conversation.Inbound{
		SenderPhone:     desc.SenderPhone,
		MessageType:     desc.MessageType,
		MessageBody:     desc.MessageBody,
		MessageID:       desc.MessageID,
		MessageUnixTime: desc.MessageUnixTime,
	})

	if h.cfg.Maintenance {
		task.Go("maintenance-notice", func() {
			conv.SendMessage(context.Background(), maintenanceNotice)
		})
		return h.responder.Respond(c, false, "Service under maintenance",
			fiber.StatusServiceUnavailable, "MAINTENANCE_MODE", nil)
	}

	if h.devFilter(h.cfg.DeploymentType, conv.Text()) {
		logx.Debug("message is meant for a local development instance, skipping")
		return h.responder.Respond(c, false, "Message filtered for local development",
			fiber.StatusAccepted, "DEV_FILTER", nil)
	}

	// Recording happens only after the maintenance and dev-filter gates:
	// a 503'd delivery must stay unseen so Meta's retry is processed
	// once the service is back.
	if dup := h.recordEvent(c.UserContext(), desc); dup {
		return h.responder.Respond(c, true, "Duplicate message ignored",
			fiber.StatusOK, "DUPLICATE_MESSAGE", nil)
	}

	// From here on the user sees a typing signal while background work
	// runs. Early returns below leave the loop to its safety cap.
	task.Go("typing-indicator", conv.RunTypingIndicator)

	if MessageTooOld(desc.MessageUnixTime, h.cfg.MessageAgeThreshold, time.Now()) {
		return h.responder.Respond(c, false, "Message too old, skipping processing",
			fiber.StatusUnprocessableEntity, "MESSAGE_TOO_OLD", nil)
	}

	// Identity must resolve before any further work is scheduled.
	if !conv.CheckAndRegisterUser(c.UserContext()) {
		task.Go("registration-failure-notice", func() {
			conv.SendMessage(context.Background(), registrationFailedNotice)
		})
		return h.responder.Respond(c, false, "User registration failed",
			fiber.StatusInternalServerError, "USER_REGISTRATION_FAILED", nil)
	}

	if desc.MessageType != "text" {
		task.Go("unsupported-message", func() {
			conv.HandleUnsupportedMessage(context.Background())
		})
		return h.responder.Respond(c, false, "Unsupported message type handled",
			fiber.StatusUnsupportedMediaType, "UNSUPPORTED_MESSAGE_TYPE", nil)
	}

	task.Go("handle-text-message", func() {
		conv.HandleTextMessage(context.Background())
	})
	return h.responder.OK(c, "Message processed successfully")
}

// recordEvent writes the delivery to the event log and reports whether
// it was a redelivery. Log failures never block processing.
func (h *Handler) recordEvent(ctx context.Context, desc *Descriptor) bool {
	if h.events == nil || desc.MessageID == "" {
		return false
	}

	dup, err := h.events.Record(ctx, eventlog.Event{
		MessageID:   desc.MessageID,
		SenderPhone: desc.SenderPhone,
		MessageType: desc.MessageType,
		Disposition: "accepted",
		ReceivedAt:  time.Now().UTC(),
	})
	if err != nil {
		logx.Warn("event log unavailable, continuing without dedup: %v", err)
		return false
	}
	if dup {
		logx.Info("duplicate webhook delivery for message %s, ignoring", desc.MessageID)
	}
	return dup
}
