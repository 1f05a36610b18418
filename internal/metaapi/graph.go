package metaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/craftable/logx"
)

const graphBaseURL = "https://graph.facebook.com"

// GraphConfig configures the real Cloud API client.
type GraphConfig struct {
	APIVersion    string // e.g. "v22.0"
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration

	// BaseURL overrides the Graph API host, for tests.
	BaseURL string
}

// GraphClient talks to Meta's Graph API messages endpoint.
type GraphClient struct {
	messagesURL string
	accessToken string
	httpClient  *http.Client
}

// NewGraphClient creates a Cloud API client for one business number.
func NewGraphClient(cfg GraphConfig) *GraphClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = graphBaseURL
	}
	return &GraphClient{
		messagesURL: fmt.Sprintf("%s/%s/%s/messages", baseURL, cfg.APIVersion, cfg.PhoneNumberID),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type typingIndicatorPayload struct {
	MessagingProduct string          `json:"messaging_product"`
	Status           string          `json:"status"`
	MessageID        string          `json:"message_id"`
	TypingIndicator  typingIndicator `json:"typing_indicator"`
}

type typingIndicator struct {
	Type string `json:"type"`
}

type textMessagePayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

func (g *GraphClient) SendTypingIndicator(ctx context.Context, recipientPhone, messageID string) error {
	payload := typingIndicatorPayload{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
		TypingIndicator:  typingIndicator{Type: "text"},
	}

	if err := g.post(ctx, payload, ErrTypingIndicatorFailed); err != nil {
		return err
	}
	logx.Debug("typing indicator sent to %s", recipientPhone)
	return nil
}

func (g *GraphClient) SendMessage(ctx context.Context, recipientPhone string, parts []string) error {
	for i, part := range parts {
		payload := textMessagePayload{
			MessagingProduct: "whatsapp",
			To:               recipientPhone,
			Text:             textBody{Body: part},
		}

		if err := g.post(ctx, payload, ErrSendFailed); err != nil {
			return Registry.New(ErrSendFailed).
				WithCause(err).
				WithDetail("part", i+1).
				WithDetail("parts_total", len(parts))
		}
		logx.Debug("sent message part %d/%d to %s", i+1, len(parts), recipientPhone)
	}
	return nil
}

func (g *GraphClient) post(ctx context.Context, payload any, code errx.Code) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Registry.New(code).WithCause(err).WithDetail("operation", "marshal_payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.messagesURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return Registry.New(code).WithCause(err).WithDetail("operation", "create_request")
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Registry.New(code).WithCause(err).WithDetail("operation", "http_request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Registry.New(code).
			WithDetail("http_status", resp.StatusCode).
			WithDetail("response_body", string(body))
	}
	return nil
}
