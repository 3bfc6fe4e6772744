package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raaihank/anonimizador/internal/privacy"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeStatus carries the message shown to the user
	EventTypeStatus EventType = "status"
	// EventTypeRedaction reports finding counts of a processed text
	EventTypeRedaction EventType = "redaction"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// StatusEvent mirrors a workflow status
type StatusEvent struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RedactionEvent describes a processed submission without its text
type RedactionEvent struct {
	InputLength  int               `json:"input_length"`
	OutputLength int               `json:"output_length"`
	TotalMatches int               `json:"total_matches"`
	Findings     []privacy.Finding `json:"findings"`
	Sink         string            `json:"sink,omitempty"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscriptionRequest selects the event types a client receives
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	IP          string
	UserAgent   string
	ConnectedAt time.Time

	conn         *websocket.Conn
	send         chan Event
	mu           sync.RWMutex
	subscription *SubscriptionRequest
}

func (c *Client) setSubscription(sub *SubscriptionRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscription = sub
}

// wants reports whether the client subscribed to the event type; no subscription means everything
func (c *Client) wants(eventType EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.subscription == nil {
		return true
	}
	for _, t := range c.subscription.Events {
		if t == eventType {
			return true
		}
	}
	return false
}

