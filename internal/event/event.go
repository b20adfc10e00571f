// Package event defines the JSON wire protocol between the relay and its
// clients. Every frame is an envelope whose "event" field discriminates the
// payload shape.
package event

import (
	"encoding/json"
	"fmt"
)

// Event names carried in the envelope.
const (
	Connected        = "connected"
	Error            = "error"
	NewNotification  = "new_notification"
	AdminCountUpdate = "admin_count_update"
	Ping             = "ping"
	Pong             = "pong"
)

// Envelope is the framing for every message on a client connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals the envelope into a single text frame.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Event, err)
	}
	return data, nil
}

// User is the minimal identity projection sent back on a successful connect.
type User struct {
	ID       int64  `json:"id"`
	UserName string `json:"user_name"`
	Role     string `json:"role,omitempty"`
}

// Notification is the full payload pushed for new_notification events.
type Notification struct {
	ID         int64          `json:"id,omitempty"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Type       string         `json:"type,omitempty"`
	Read       bool           `json:"read"`
	ActionLink string         `json:"actionLink,omitempty"`
	ActionText string         `json:"actionText,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  string         `json:"createdAt,omitempty"`
	UpdatedAt  string         `json:"updatedAt,omitempty"`
}

type connectedData struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

type errorData struct {
	Message string `json:"message"`
}

type notificationData struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}

type countData struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func envelope(event string, data any) Envelope {
	raw, err := json.Marshal(data)
	if err != nil {
		// All data shapes above are marshalable; this is unreachable in practice.
		return Envelope{Event: event}
	}
	return Envelope{Event: event, Data: raw}
}

// ConnectedEvent confirms a successful registration to the client.
func ConnectedEvent(user User) Envelope {
	return envelope(Connected, connectedData{
		Message: "Successfully connected",
		User:    user,
	})
}

// ErrorEvent carries a terminal failure message, sent before closing.
func ErrorEvent(message string) Envelope {
	return envelope(Error, errorData{Message: message})
}

// NotificationEvent wraps a full notification payload for fan-out.
func NotificationEvent(n *Notification) Envelope {
	return envelope(NewNotification, notificationData{
		Type:         NewNotification,
		Notification: n,
	})
}

// CountEvent wraps a lightweight counter update for fan-out.
func CountEvent(kind string, count int) Envelope {
	return envelope(AdminCountUpdate, countData{Type: kind, Count: count})
}

// PongEvent answers a client keepalive ping.
func PongEvent() Envelope {
	return Envelope{Event: Pong}
}
