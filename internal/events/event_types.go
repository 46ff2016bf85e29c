package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenPairIssued   EventType = "token_pair_issued"
	EventTokenRefreshed    EventType = "token_refreshed"
	EventTokenRevoked      EventType = "token_revoked"
	EventUserTokensRevoked EventType = "user_tokens_revoked"
	EventAllTokensRevoked  EventType = "all_tokens_revoked"
	EventPasswordChanged   EventType = "password_changed"
)

// Event represents a security-relevant action emitted by services. Token
// values never appear in payloads; only identifiers do.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    int64       `json:"user_id"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TokenRevokedPayload payload.
type TokenRevokedPayload struct {
	JTI       string `json:"jti"`
	TokenType string `json:"token_type"`
}
