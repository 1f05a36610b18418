// Package eventlog records accepted webhook events and rejects
// duplicate message ids. Meta redelivers webhooks it considers
// unacknowledged, so without this a slow backend means double
// processing.
package eventlog

import (
	"context"
	"time"

	"github.com/Abraxas-365/craftable/errx"
)

var (
	Registry = errx.NewRegistry("EVENTLOG")

	ErrRecordFailed     = Registry.Register("RECORD_FAILED", errx.TypeInternal, 500, "Failed to record webhook event")
	ErrConnectionFailed = Registry.Register("CONNECTION_FAILED", errx.TypeUnavailable, 503, "Event log connection failed")
)

// Event is one accepted webhook delivery.
type Event struct {
	MessageID   string    `json:"message_id" db:"message_id" bson:"message_id"`
	SenderPhone string    `json:"sender_phone" db:"sender_phone" bson:"sender_phone"`
	MessageType string    `json:"message_type" db:"message_type" bson:"message_type"`
	Disposition string    `json:"disposition" db:"disposition" bson:"disposition"`
	ReceivedAt  time.Time `json:"received_at" db:"received_at" bson:"received_at"`
}

// Store persists events keyed by message id. Record reports duplicate
// when the id was already seen; implementations must treat the message
// id as a unique key.
type Store interface {
	Record(ctx context.Context, ev Event) (duplicate bool, err error)
	Close(ctx context.Context) error
}
