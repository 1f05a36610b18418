package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/craftable/logx"
)

const apiKeyHeader = "X-Whatsapp-Api-Key"

// HTTPConfig configures the real backend client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient is the production Client implementation. One instance is
// shared by all conversations; the underlying http.Client pools
// connections.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// streamClient carries no total deadline. http.Client.Timeout spans
	// the whole exchange including the body read, which would cut off a
	// streamed reply still in flight; streaming calls are bounded by the
	// per-call context instead.
	streamClient *http.Client
}

// NewHTTPClient creates a backend client against cfg.BaseURL.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
	}
}

func (c *HTTPClient) RegisterUser(ctx context.Context, phoneNum, preferredLanguage string) (*Registration, error) {
	payload := map[string]string{
		"phone_num":          phoneNum,
		"preferred_language": preferredLanguage,
	}

	var reg Registration
	if err := c.postJSON(ctx, "/whatsapp/v2/users/register", payload, &reg, ErrRegistrationFailed); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (c *HTTPClient) CheckUserExists(ctx context.Context, phoneNum string) (bool, error) {
	var result struct {
		Exists bool `json:"exists"`
	}
	path := "/whatsapp/v2/users/exists?phone_num=" + url.QueryEscape(phoneNum)
	if err := c.getJSON(ctx, path, &result, ErrExistsCheckFailed); err != nil {
		return false, err
	}
	return result.Exists, nil
}

func (c *HTTPClient) CreateThread(ctx context.Context, phoneNum, title string) (string, error) {
	payload := map[string]string{
		"phone_num": phoneNum,
		"title":     title,
	}

	var result struct {
		ThreadID string `json:"thread_id"`
	}
	if err := c.postJSON(ctx, "/whatsapp/v2/threads", payload, &result, ErrThreadCreationFailed); err != nil {
		return "", err
	}
	return result.ThreadID, nil
}

func (c *HTTPClient) LastThreadInfo(ctx context.Context, phoneNum string) (*ThreadInfo, error) {
	var result struct {
		ThreadID        string `json:"thread_id"`
		LastMessageTime string `json:"last_message_time"`
	}
	path := "/whatsapp/v2/threads/last?phone_num=" + url.QueryEscape(phoneNum)
	if err := c.getJSON(ctx, path, &result, ErrThreadInfoFailed); err != nil {
		return nil, err
	}

	info := &ThreadInfo{ThreadID: result.ThreadID}
	if result.LastMessageTime != "" {
		t, err := parseBackendTime(result.LastMessageTime)
		if err != nil {
			logx.Warn("unparsable last_message_time %q from backend: %v", result.LastMessageTime, err)
		} else {
			info.LastMessageTime = &t
		}
	}
	return info, nil
}

func (c *HTTPClient) ThreadHistory(ctx context.Context, phoneNum, threadID string) (*History, error) {
	var history History
	path := fmt.Sprintf("/whatsapp/v2/threads/%s/history?phone_num=%s",
		url.PathEscape(threadID), url.QueryEscape(phoneNum))
	if err := c.getJSON(ctx, path, &history, ErrThreadHistoryFailed); err != nil {
		return nil, err
	}
	return &history, nil
}

// ProcessMessage posts the user's text and accumulates the streamed
// reply until the backend closes the stream. The call runs on the
// deadline-free stream client; long replies keep flowing as long as
// the caller's context allows.
func (c *HTTPClient) ProcessMessage(ctx context.Context, phoneNum, threadID, message string) (string, error) {
	payload := map[string]string{
		"phone_num": phoneNum,
		"thread_id": threadID,
		"message":   message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", Registry.New(ErrProcessingFailed).WithCause(err).WithDetail("operation", "marshal_payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/whatsapp/v2/messages/process", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", Registry.New(ErrProcessingFailed).WithCause(err).WithDetail("operation", "create_request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return "", Registry.New(ErrProcessingFailed).WithCause(err).WithDetail("operation", "http_request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.apiError(resp, ErrProcessingFailed)
	}

	var full strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			full.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", Registry.New(ErrProcessingFailed).WithCause(err).WithDetail("operation", "read_stream")
		}
	}
	return full.String(), nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any, code errx.Code) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Registry.New(code).WithCause(err).WithDetail("operation", "create_request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	return c.do(req, out, code)
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, payload, out any, code errx.Code) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Registry.New(code).WithCause(err).WithDetail("operation", "marshal_payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return Registry.New(code).WithCause(err).WithDetail("operation", "create_request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, code)
}

func (c *HTTPClient) do(req *http.Request, out any, code errx.Code) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Registry.New(code).WithCause(err).WithDetail("operation", "http_request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp, code)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Registry.New(code).WithCause(err).WithDetail("operation", "decode_response")
	}
	return nil
}

func (c *HTTPClient) apiError(resp *http.Response, code errx.Code) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return Registry.New(code).
		WithDetail("http_status", resp.StatusCode).
		WithDetail("response_body", string(body))
}

// parseBackendTime accepts the timestamp layouts the backend emits:
// RFC 3339 with or without fractional seconds, or a bare ISO timestamp
// which is taken as UTC.
func parseBackendTime(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp layout %q", s)
}
