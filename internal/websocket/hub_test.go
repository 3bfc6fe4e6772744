package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raaihank/anonimizador/internal/privacy"
	"github.com/raaihank/anonimizador/internal/workflow"
)

func startHub(t *testing.T, cfg *HubConfig) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(cfg, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event map[string]interface{}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return event
}

func TestHubDisplayBroadcastsStatus(t *testing.T) {
	hub, server := startHub(t, &HubConfig{BroadcastStatus: true})
	conn := dial(t, server, nil)
	waitForClients(t, hub, 1)

	display := HubDisplay{Hub: hub, RequestID: "req-1"}
	status := workflow.Status{Kind: workflow.KindDone, Message: "Texto procesado y fichero descargado."}
	if err := display.Show(context.Background(), status); err != nil {
		t.Fatalf("Show failed: %v", err)
	}

	event := readEvent(t, conn)
	if event["type"] != string(EventTypeStatus) || event["request_id"] != "req-1" {
		t.Errorf("Unexpected event: %v", event)
	}
	data := event["data"].(map[string]interface{})
	if data["kind"] != "done" || data["message"] != status.Message {
		t.Errorf("Unexpected data: %v", data)
	}
}

func TestHubRedactionEventHasNoText(t *testing.T) {
	hub, server := startHub(t, &HubConfig{BroadcastRedactions: true})
	conn := dial(t, server, nil)
	waitForClients(t, hub, 1)

	result := privacy.Redact("Mi DNI es 12345678Z")
	if err := hub.PublishRedaction("req-2", NewRedactionEvent(result, "blob")); err != nil {
		t.Fatalf("PublishRedaction failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if strings.Contains(string(raw), "12345678Z") || strings.Contains(string(raw), "Mi DNI") {
		t.Errorf("Redaction event leaked text: %s", raw)
	}
	if !strings.Contains(string(raw), `"total_matches":1`) {
		t.Errorf("Missing counts: %s", raw)
	}
}

func TestHubDisabledEventsAreIgnored(t *testing.T) {
	hub, _ := startHub(t, &HubConfig{})
	if err := (HubDisplay{Hub: hub}).Show(context.Background(), workflow.Status{Kind: workflow.KindPrompt}); err != nil {
		t.Errorf("Disabled event type should not fail: %v", err)
	}
	if hub.shouldBroadcastEvent(EventTypePong) {
		t.Error("Unknown event types must not be broadcast")
	}
}

func TestHubDisplayNilHub(t *testing.T) {
	if err := (HubDisplay{}).Show(context.Background(), workflow.Status{}); err != nil {
		t.Errorf("nil hub should be a no-op: %v", err)
	}
}

func TestHubSubscription(t *testing.T) {
	hub, server := startHub(t, &HubConfig{BroadcastStatus: true, BroadcastRedactions: true})
	conn := dial(t, server, nil)
	waitForClients(t, hub, 1)

	if err := conn.WriteJSON(map[string]interface{}{
		"type": "subscribe",
		"data": map[string]interface{}{"events": []string{"redaction"}},
	}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	// ping is answered after the subscription is applied
	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if event := readEvent(t, conn); event["type"] != string(EventTypePong) {
		t.Fatalf("Expected pong, got %v", event)
	}

	HubDisplay{Hub: hub}.Show(context.Background(), workflow.Status{Kind: workflow.KindDone, Message: "x"})
	hub.PublishRedaction("", RedactionEvent{TotalMatches: 2})

	if event := readEvent(t, conn); event["type"] != string(EventTypeRedaction) {
		t.Errorf("Expected only the redaction event, got %v", event)
	}
}

func TestHubConnectionEvents(t *testing.T) {
	hub, server := startHub(t, &HubConfig{BroadcastConnections: true})
	first := dial(t, server, nil)
	waitForClients(t, hub, 1)

	second := dial(t, server, nil)
	waitForClients(t, hub, 2)

	event := readEvent(t, first)
	data := event["data"].(map[string]interface{})
	if event["type"] != string(EventTypeConnection) || data["action"] != "connected" {
		t.Errorf("Unexpected event: %v", event)
	}

	second.Close()
	event = readEvent(t, first)
	data = event["data"].(map[string]interface{})
	if data["action"] != "disconnected" {
		t.Errorf("Expected disconnect event, got %v", event)
	}
	waitForClients(t, hub, 1)

	if stats := hub.GetStats(); stats.TotalConnections != 2 || stats.ActiveConnections != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestHubBasicAuth(t *testing.T) {
	_, server := startHub(t, &HubConfig{Username: "admin", Password: "secret"})
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without credentials, got %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.SetBasicAuth("admin", "secret")
	conn, _, err := websocket.DefaultDialer.Dial(url, req.Header)
	if err != nil {
		t.Fatalf("Dial with credentials failed: %v", err)
	}
	conn.Close()
}

func TestHubMaxConnections(t *testing.T) {
	hub, server := startHub(t, &HubConfig{MaxConnections: 1})
	dial(t, server, nil)
	waitForClients(t, hub, 1)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 over the limit, got %v", err)
	}
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub(&HubConfig{AllowedOrigins: []string{"http://localhost:8080"}}, zap.NewNop())

	tests := map[string]bool{
		"":                      true,
		"http://localhost:8080": true,
		"http://evil.example":   false,
	}
	for origin, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := hub.checkOrigin(r); got != want {
			t.Errorf("checkOrigin(%q) = %v, want %v", origin, got, want)
		}
	}
}
