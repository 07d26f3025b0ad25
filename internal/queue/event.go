// Package queue defines the auth event payloads exchanged over the message
// broker, the publisher the session service emits them through and the
// audit consumer that records them.
package queue

import "time"

// AuthEventsQueue is the durable queue auth events are published to.
const AuthEventsQueue = "auth.events"

// EventType names a session lifecycle transition.
type EventType string

const (
	EventUserRegistered  EventType = "user.registered"
	EventLogin           EventType = "session.login"
	EventRefreshed       EventType = "session.refreshed"
	EventLogout          EventType = "session.logout"
	EventRefreshReuse    EventType = "session.refresh_reuse"
	EventPasswordChanged EventType = "user.password_changed"
)

// AuthEvent is published after a session operation succeeds, or when a
// consumed refresh token is replayed. It never carries a token or password.
type AuthEvent struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
