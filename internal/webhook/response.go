package webhook

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// MetaResponse is the JSON body every POST webhook reply carries.
type MetaResponse struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Timestamp int64          `json:"timestamp"`
	ErrorCode string         `json:"error_code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Responder renders webhook replies. With AlwaysOK set every reply is
// an HTTP 200, satisfying Meta's expectation that acknowledgment never
// fails; with it unset failures keep their semantic status codes,
// which is what the test suite relies on.
type Responder struct {
	AlwaysOK bool
}

// Respond writes the structured reply. statusCode only takes effect
// for failures when AlwaysOK is disabled; successes are always 200.
func (r Responder) Respond(c *fiber.Ctx, success bool, message string, statusCode int, errorCode string, details map[string]any) error {
	body := MetaResponse{
		Success:   success,
		Message:   message,
		Timestamp: time.Now().Unix(),
		ErrorCode: errorCode,
		Details:   details,
	}

	status := fiber.StatusOK
	if !r.AlwaysOK && !success {
		status = statusCode
	}
	return c.Status(status).JSON(body)
}

// OK is a success reply shortcut.
func (r Responder) OK(c *fiber.Ctx, message string) error {
	return r.Respond(c, true, message, fiber.StatusOK, "", nil)
}
