// Package queue defines message payloads exchanged over the message broker.
package queue

// AccountCreatedQueue is the durable queue account events are published to.
const AccountCreatedQueue = "account.created"

// Sign-up methods carried by AccountCreatedEvent.
const (
	MethodPassword = "password"
	MethodGoogle   = "google"
)

// AccountCreatedEvent is published whenever a credential record is
// inserted, whether through password registration or Google sign-in.
// Trust is "verified" or "unverified" for Google accounts and empty for
// password accounts.
type AccountCreatedEvent struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Method    string `json:"method"`
	Trust     string `json:"trust,omitempty"`
	CreatedAt string `json:"created_at"`
}
