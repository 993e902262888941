package api

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	loginTopic         = "riz.auth.login"
	resetRequestTopic  = "riz.auth.password_reset.requested"
	resetCompleteTopic = "riz.auth.password_reset.completed"
)

// Topics lists every subject the API publishes on.
func Topics() []string {
	return []string{loginTopic, resetRequestTopic, resetCompleteTopic, noticeTopic}
}

// EventPublisher delivers auth events. *bus.Bus satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

type authEvent struct {
	UserID    int64     `json:"userId"`
	RequestID string    `json:"requestId,omitempty"`
	At        time.Time `json:"at"`
}

// publishEvent is best effort: failures are logged and swallowed.
func (a *API) publishEvent(ctx context.Context, subject string, userID int64) {
	if a.events == nil || subject == "" {
		return
	}

	evt := authEvent{
		UserID:    userID,
		RequestID: middleware.GetReqID(ctx),
		At:        a.now().UTC(),
	}

	ctx, cancel := withTimeout(context.WithoutCancel(ctx))
	defer cancel()
	if err := a.events.Publish(ctx, subject, evt); err != nil {
		a.log.Warn().Err(err).Str("subject", subject).Int64("user_id", userID).Msg("publish auth event")
	}
}
