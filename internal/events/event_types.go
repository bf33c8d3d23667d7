package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventLogout         EventType = "logout"
)

// Event represents an authentication event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Email     string      `json:"email,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	TokenID string `json:"token_id"`
	Role    string `json:"role,omitempty"`
}

// LoginFailedPayload payload. Email only; the reason stays internal.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// LogoutPayload payload.
type LogoutPayload struct {
	TokenID string `json:"token_id"`
}
