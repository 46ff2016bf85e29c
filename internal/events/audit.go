package events

import (
	"context"

	"go.uber.org/zap"
)

// RegisterAuditLogger subscribes a structured-log audit trail to every
// security-relevant event type.
func RegisterAuditLogger(dispatcher Dispatcher, logger *zap.Logger) {
	handler := func(_ context.Context, event Event) error {
		logger.Info("audit",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Int64("user_id", event.UserID),
			zap.Int64("actor_id", event.ActorID),
			zap.Time("at", event.Timestamp),
		)
		return nil
	}

	for _, eventType := range []EventType{
		EventTokenPairIssued,
		EventTokenRefreshed,
		EventTokenRevoked,
		EventUserTokensRevoked,
		EventAllTokensRevoked,
		EventPasswordChanged,
	} {
		dispatcher.Subscribe(eventType, handler)
	}
}
