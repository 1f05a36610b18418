package webhook

import (
	"encoding/json"
	"strconv"

	"github.com/Abraxas-365/craftable/logx"
)

// Descriptor is the normalized result of parsing a webhook payload.
// When IsTargetNumber is false nothing else is populated; when
// IsStatus is true only the two flags are meaningful.
type Descriptor struct {
	IsStatus       bool
	IsTargetNumber bool

	SenderPhone     string
	MessageType     string
	MessageBody     map[string]any
	MessageID       string
	MessageUnixTime int64
}

// envelope mirrors Meta's nested webhook JSON shape. The message
// object stays raw so the type key can be checked against the object's
// own keys.
type envelope struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Metadata *struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
					PhoneNumberID      string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []map[string]json.RawMessage `json:"messages"`
				Statuses []json.RawMessage            `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Parser extracts message descriptors for one configured business
// number.
type Parser struct {
	phoneNumberID string
}

// NewParser creates a parser bound to the deployment's business
// phone-number id.
func NewParser(phoneNumberID string) *Parser {
	return &Parser{phoneNumberID: phoneNumberID}
}

// Parse navigates object -> entry[0] -> changes[0] -> value and
// extracts the message descriptor. A mismatched business number and a
// status update are intentional non-error signals, not failures.
func (p *Parser) Parse(body []byte) (*Descriptor, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		logx.Error("unparsable webhook payload: %v", err)
		return nil, Registry.New(ErrInvalidPayload).WithCause(err).WithDetail("body", string(body))
	}

	if env.Object == "" || len(env.Entry) == 0 || len(env.Entry[0].Changes) == 0 {
		logx.Error("malformed webhook payload: %s", string(body))
		return nil, Registry.New(ErrInvalidPayload).WithDetail("reason", "malformed payload").WithDetail("body", string(body))
	}
	value := env.Entry[0].Changes[0].Value

	if value.Metadata == nil || value.Metadata.PhoneNumberID == "" {
		logx.Error("missing metadata.phone_number_id in webhook payload")
		return nil, Registry.New(ErrInvalidPayload).WithDetail("reason", "missing phone_number_id")
	}

	// One webhook URL can serve several numbers; a mismatch means the
	// event belongs to another deployment.
	if value.Metadata.PhoneNumberID != p.phoneNumberID {
		return &Descriptor{IsTargetNumber: false}, nil
	}

	// The statuses key marks a delivery receipt even when its list is
	// empty; absence of the key leaves it nil.
	if value.Statuses != nil {
		return &Descriptor{IsStatus: true, IsTargetNumber: true}, nil
	}

	if len(value.Messages) == 0 {
		logx.Error("unsupported message shape in webhook payload: %s", string(body))
		return nil, Registry.New(ErrInvalidPayload).WithDetail("reason", "unsupported message shape")
	}
	msg := value.Messages[0]

	from, ok := rawString(msg["from"])
	if !ok {
		return nil, Registry.New(ErrInvalidPayload).WithDetail("reason", "missing sender")
	}
	msgType, ok := rawString(msg["type"])
	if !ok {
		return nil, Registry.New(ErrInvalidPayload).WithDetail("reason", "missing message type")
	}

	desc := &Descriptor{
		IsTargetNumber: true,
		SenderPhone:    from,
		MessageType:    msgType,
	}
	if id, ok := rawString(msg["id"]); ok {
		desc.MessageID = id
	}
	desc.MessageUnixTime = rawUnixTime(msg["timestamp"])

	// Meta keys the payload by type ({"<type>": {...}}); when the key
	// is absent the message carries content Meta itself cannot
	// represent (polls, GIF stickers, video notes) and reports it
	// under "errors".
	if _, ok := msg[desc.MessageType]; !ok {
		desc.MessageType = "errors"
	}
	if raw, ok := msg[desc.MessageType]; ok {
		var bodyMap map[string]any
		if err := json.Unmarshal(raw, &bodyMap); err == nil {
			desc.MessageBody = bodyMap
		}
	}

	logx.Info("received a supported whatsapp message from %s (type %s)", desc.SenderPhone, desc.MessageType)
	return desc, nil
}

func rawString(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// rawUnixTime reads Meta's timestamp field, sent as a stringified Unix
// time. Missing or unparsable values are treated as absent, never as a
// parse failure.
func rawUnixTime(raw json.RawMessage) int64 {
	if raw == nil {
		return 0
	}
	if s, ok := rawString(raw); ok {
		t, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			logx.Warn("unparsable message timestamp %q", s)
			return 0
		}
		return t
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		logx.Warn("unparsable message timestamp %s", string(raw))
		return 0
	}
	return n
}
