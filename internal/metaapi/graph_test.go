package metaapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestGraphClient(t *testing.T, handler http.HandlerFunc) *GraphClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGraphClient(GraphConfig{
		APIVersion:    "v22.0",
		PhoneNumberID: "111222333",
		AccessToken:   "test-token",
		BaseURL:       srv.URL,
	})
}

// TestGraphClient_SendTypingIndicator posts the read-plus-typing
// payload to the messages endpoint with bearer auth.
func TestGraphClient_SendTypingIndicator(t *testing.T) {
	var got map[string]any
	c := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v22.0/111222333/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Error("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.Write([]byte(`{"success": true}`))
	})

	if err := c.SendTypingIndicator(context.Background(), "51999888777", "wamid.x"); err != nil {
		t.Fatalf("SendTypingIndicator() error = %v", err)
	}

	if got["messaging_product"] != "whatsapp" || got["status"] != "read" || got["message_id"] != "wamid.x" {
		t.Fatalf("payload = %v", got)
	}
	indicator, _ := got["typing_indicator"].(map[string]any)
	if indicator["type"] != "text" {
		t.Fatalf("typing_indicator = %v", got["typing_indicator"])
	}
}

// TestGraphClient_SendMessage sends each part as its own request, in
// order.
func TestGraphClient_SendMessage(t *testing.T) {
	var bodies []string
	c := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			MessagingProduct string `json:"messaging_product"`
			To               string `json:"to"`
			Text             struct {
				Body string `json:"body"`
			} `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.MessagingProduct != "whatsapp" || payload.To != "51999888777" {
			t.Errorf("payload = %+v", payload)
		}
		bodies = append(bodies, payload.Text.Body)
		w.Write([]byte(`{"messages": [{"id": "wamid.out"}]}`))
	})

	parts := []string{"part one", "part two", "part three"}
	if err := c.SendMessage(context.Background(), "51999888777", parts); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if len(bodies) != len(parts) {
		t.Fatalf("server saw %d requests, want %d", len(bodies), len(parts))
	}
	for i, want := range parts {
		if bodies[i] != want {
			t.Errorf("part %d = %q, want %q", i, bodies[i], want)
		}
	}
}

// TestGraphClient_SendMessage_PartFailure stops at the failing part.
func TestGraphClient_SendMessage_PartFailure(t *testing.T) {
	var requests int
	c := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 2 {
			http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	})

	err := c.SendMessage(context.Background(), "51999888777", []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("SendMessage() = nil error on a failing part")
	}
	if requests != 2 {
		t.Fatalf("server saw %d requests, want 2", requests)
	}
}

// TestMock_Recording captures outbound traffic for assertions.
func TestMock_Recording(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	m.SendTypingIndicator(ctx, "51999888777", "wamid.1")
	m.SendMessage(ctx, "51999888777", []string{"hello", "again"})

	calls := m.TypingCalls()
	if len(calls) != 1 || calls[0].MessageID != "wamid.1" {
		t.Fatalf("typing calls = %+v", calls)
	}
	sent := m.SentMessages()
	if len(sent) != 1 || len(sent[0].Parts) != 2 {
		t.Fatalf("sent = %+v", sent)
	}
}
