package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLoggedIn   EventType = "user_logged_in"
	EventUserLoggedOut  EventType = "user_logged_out"
)

// Event represents a session event emitted by the auth service.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	TokenID   string      `json:"token_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, subject, tokenID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		TokenID:   tokenID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionIssuedPayload accompanies registration and login.
type SessionIssuedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// LoggedOutPayload accompanies logout.
type LoggedOutPayload struct {
	Revoked   bool      `json:"revoked"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}
